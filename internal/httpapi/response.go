// Package httpapi implements the internal HTTP surface: the
// POST /internal/ws_event injection endpoint, the /ws WebSocket upgrade,
// and the operator command endpoints. REST resources, HTML rendering, and
// login/session UI all live outside this service.
package httpapi

import (
	"encoding/json"
	"net/http"
)

// envelope is the UI-facing response shape: every endpoint returns
// {success: bool, error?: string, data?: ...} rather than a bare HTTP
// error, so callers always get a decodable body.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ok writes a 200 success envelope.
func ok(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

// okData writes a 200 success envelope carrying a payload.
func okData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// fail writes an envelope carrying the error message at the given status.
// Still never a bare HTTP error body: the JSON envelope is always present.
func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Error: message})
}
