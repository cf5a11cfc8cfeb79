package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reactdb/pkg/auth"
	"reactdb/pkg/dedup"
	"reactdb/pkg/engine"
	"reactdb/pkg/keyboard"
	"reactdb/pkg/models"
	"reactdb/pkg/store"
	"reactdb/pkg/validation"
	"reactdb/pkg/writer"
)

func newTestHandler(t *testing.T, keys auth.Keys) http.Handler {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	validation.SetRules(validation.Rules{AllowedTypes: []string{"like", "love", "fire", "clap", "sad"}})

	g := dedup.NewGuard(time.Millisecond)
	rend := keyboard.NewRenderer(nil, 0)
	w := writer.New(writer.StoreFunc(store.SaveRecord), writer.Policy{
		MaxAttempts: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond,
	})
	e := engine.New(g, engine.PebbleStorage(), w, rend)
	return Handler(e, keys)
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, auth.NewKeys(nil, true))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rr.Code)
	}
}

func TestInteractionAppliesAndRenders(t *testing.T) {
	h := newTestHandler(t, auth.NewKeys(nil, true))

	ev := models.Interaction{ActorID: "u1", RawPayload: "react:like:m1"}
	rr := postJSON(t, h, "/v1/interactions", ev, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var res engine.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !res.Applied || res.Action != models.ActionAdded {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Record.Reactions["like"] != 1 || res.Record.TotalCount != 1 {
		t.Fatalf("counts not applied: %+v", res.Record)
	}
	if len(res.Keyboard.Rows) == 0 {
		t.Fatal("keyboard missing from result")
	}
}

func TestInteractionMalformedStillAcks(t *testing.T) {
	h := newTestHandler(t, auth.NewKeys(nil, true))

	ev := models.Interaction{ActorID: "u1", RawPayload: "garbage"}
	rr := postJSON(t, h, "/v1/interactions", ev, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("handled failure must answer 200, got %d", rr.Code)
	}
	var res engine.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if res.Applied || res.Action != models.ActionNone || res.Ack == "" {
		t.Fatalf("expected failure ack, got %+v", res)
	}
}

func TestInteractionBadJSON(t *testing.T) {
	h := newTestHandler(t, auth.NewKeys(nil, true))
	req := httptest.NewRequest(http.MethodPost, "/v1/interactions", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestAuthRejectsMissingKey(t *testing.T) {
	h := newTestHandler(t, auth.NewKeys([]string{"sekrit"}, false))

	ev := models.Interaction{ActorID: "u1", RawPayload: "react:like:m1"}
	rr := postJSON(t, h, "/v1/interactions", ev, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}

	rr = postJSON(t, h, "/v1/interactions", ev, map[string]string{"X-API-Key": "sekrit"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status with key = %d, want 200", rr.Code)
	}
}

func TestPostAndGetReactionsByKey(t *testing.T) {
	h := newTestHandler(t, auth.NewKeys(nil, true))

	body := map[string]string{"user_id": "u9", "reaction": "fire"}
	rr := postJSON(t, h, "/v1/messages/chan9:77/reactions", body, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("post status = %d body=%s", rr.Code, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/messages/chan9:77/reactions", nil)
	grr := httptest.NewRecorder()
	h.ServeHTTP(grr, req)
	if grr.Code != http.StatusOK {
		t.Fatalf("get status = %d", grr.Code)
	}
	var out struct {
		Record   models.ReactionRecord `json:"record"`
		Keyboard keyboard.Keyboard     `json:"keyboard"`
	}
	if err := json.Unmarshal(grr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Record.Reactions["fire"] != 1 {
		t.Fatalf("fire count = %d, want 1", out.Record.Reactions["fire"])
	}
	if len(out.Keyboard.Rows) == 0 {
		t.Fatal("keyboard missing")
	}
}

func TestListMessages(t *testing.T) {
	h := newTestHandler(t, auth.NewKeys(nil, true))

	for _, key := range []string{"a:1", "a:2", "a:3"} {
		ev := models.Interaction{ActorID: "u1", RawPayload: "react:clap:" + key}
		if rr := postJSON(t, h, "/v1/interactions", ev, nil); rr.Code != http.StatusOK {
			t.Fatalf("seed %s: status %d", key, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/messages?limit=2", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var out struct {
		Records []json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(out.Records))
	}
}
