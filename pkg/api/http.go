// Package api exposes the HTTP surface: ticket intake plus the triage and
// audit endpoints. Tenant and team-directory records are provisioned by the
// surrounding platform, not through this API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"agentdesk/pkg/store"
	"agentdesk/pkg/triage"
)

// Handler returns the API router. All routes are JSON under /v1.
func Handler(eng *triage.Engine) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !store.Ready() {
			http.Error(w, `{"status":"store not ready"}`, http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	RegisterTickets(v1, eng)
	return r
}

// writeJSON writes v as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
