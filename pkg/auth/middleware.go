// Package auth gates the service API behind backend API keys.
package auth

import (
	"net/http"

	"reactdb/pkg/logger"
	"reactdb/pkg/utils"
)

// Keys holds the configured backend key set.
type Keys struct {
	Backend     map[string]struct{}
	AllowUnauth bool
}

// NewKeys builds the key set from the configured list.
func NewKeys(backend []string, allowUnauth bool) Keys {
	m := make(map[string]struct{}, len(backend))
	for _, k := range backend {
		if k != "" {
			m[k] = struct{}{}
		}
	}
	return Keys{Backend: m, AllowUnauth: allowUnauth}
}

// Middleware checks X-API-Key against the backend key set. Health and
// metrics stay outside this middleware; everything under /v1 goes
// through it.
func Middleware(keys Keys) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keys.AllowUnauth || len(keys.Backend) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			k := r.Header.Get("X-API-Key")
			if _, ok := keys.Backend[k]; !ok {
				logger.Warn("unauthorized_request", "path", r.URL.Path, "remote", r.RemoteAddr)
				utils.JSONError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CheckKeyFast is the fasthttp-side key check used by the callback
// listener.
func (k Keys) CheckKeyFast(apiKey string) bool {
	if k.AllowUnauth || len(k.Backend) == 0 {
		return true
	}
	_, ok := k.Backend[apiKey]
	return ok
}
