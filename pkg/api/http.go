package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reactdb/pkg/api/handlers"
	"reactdb/pkg/auth"
	"reactdb/pkg/engine"
	"reactdb/pkg/store"
)

// Handler builds the service router: open health and metrics, and the
// /v1 API behind the key middleware.
func Handler(e *engine.Engine, keys auth.Keys) http.Handler {
	handlers.SetEngine(e)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !store.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"store not ready"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(auth.Middleware(keys))
	handlers.RegisterReactions(v1)

	return r
}
