package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"reactdb/pkg/engine"
	"reactdb/pkg/models"
	"reactdb/pkg/store"
	"reactdb/pkg/utils"

	"github.com/gorilla/mux"
)

var eng *engine.Engine

// SetEngine installs the engine instance the handlers route into.
func SetEngine(e *engine.Engine) { eng = e }

// RegisterReactions registers the reaction endpoints on the /v1 router.
func RegisterReactions(r *mux.Router) {
	r.HandleFunc("/interactions", postInteraction).Methods(http.MethodPost)
	r.HandleFunc("/messages", listMessages).Methods(http.MethodGet)
	r.HandleFunc("/messages/{key}/reactions", getReactions).Methods(http.MethodGet)
	r.HandleFunc("/messages/{key}/reactions", postReaction).Methods(http.MethodPost)
}

// postInteraction accepts a full interaction envelope from the chat
// transport. Handled failures still answer 200 with a failure ack so
// the transport can close the pending interaction; only undecodable
// JSON is a 400.
func postInteraction(w http.ResponseWriter, r *http.Request) {
	var ev models.Interaction
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, _ := eng.HandleInteraction(r.Context(), ev)
	_ = utils.JSONWrite(w, http.StatusOK, res)
}

// postReaction is a convenience surface for backends that know the
// message key already: {"user_id":"u1","reaction":"like"}.
func postReaction(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var payload struct {
		UserID   string `json:"user_id"`
		Reaction string `json:"reaction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if payload.UserID == "" || payload.Reaction == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing user_id or reaction")
		return
	}
	ev := models.Interaction{
		ActorID:    payload.UserID,
		RawPayload: "react:" + payload.Reaction + ":" + key,
	}
	res, _ := eng.HandleInteraction(r.Context(), ev)
	_ = utils.JSONWrite(w, http.StatusOK, res)
}

func getReactions(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	rec, kb, err := eng.Load(key)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Record   models.ReactionRecord `json:"record"`
		Keyboard interface{}           `json:"keyboard"`
	}{Record: rec, Keyboard: kb})
}

func listMessages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if n, err := strconv.Atoi(ls); err == nil && n > 0 {
			limit = n
		}
	}
	var (
		raws []string
		err  error
	)
	if limit > 0 {
		raws, err = store.ListRecords(limit)
	} else {
		raws, err = store.ListRecords()
	}
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]json.RawMessage, 0, len(raws))
	for _, s := range raws {
		out = append(out, json.RawMessage(s))
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Records []json.RawMessage `json:"records"`
	}{Records: out})
}
