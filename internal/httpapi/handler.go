package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/nutify/nutify/internal/bus"
	"github.com/nutify/nutify/internal/commands"
)

// wsEventEnvelope is the JSON body accepted by POST /internal/ws_event:
// it carries a type and a payload, and is re-emitted on the live bus
// unchanged, mirroring bus.Message's own {type, payload} shape.
type wsEventEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler serves the internal HTTP surface: the ws_event injection POST,
// the /ws upgrade, and the operator command endpoints. Routing is a plain
// net/http.ServeMux: a handful of internal routes, not a REST resource
// tree.
type Handler struct {
	hub  *bus.Hub
	exec *commands.Executor
	log  *zap.Logger
}

// New builds a Handler bound to hub. exec may be nil, in which case the
// command endpoints report unavailable.
func New(hub *bus.Hub, exec *commands.Executor, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{hub: hub, exec: exec, log: log.Named("httpapi")}
}

// Routes registers this package's handlers on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/internal/ws_event", methodOnly(http.MethodPost, h.handleWSEvent))
	mux.HandleFunc("/ws", methodOnly(http.MethodGet, h.handleWS))
	mux.HandleFunc("/internal/commands", methodOnly(http.MethodGet, h.handleListCommands))
	mux.HandleFunc("/internal/command", methodOnly(http.MethodPost, h.handleExecuteCommand))
	mux.HandleFunc("/internal/variable", methodOnly(http.MethodPost, h.handleSetVariable))
}

// methodOnly rejects requests whose method doesn't match, mirroring the
// method-prefixed ServeMux pattern syntax for toolchains that lack it.
func methodOnly(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// handleWSEvent re-emits an internally-POSTed event onto the live bus,
// used by the connection monitor to inject USB signals without direct hub
// access.
func (h *Handler) handleWSEvent(w http.ResponseWriter, r *http.Request) {
	var body wsEventEnvelope
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Type == "" {
		fail(w, http.StatusBadRequest, "type is required")
		return
	}

	var payload any
	if len(body.Payload) > 0 {
		if err := json.Unmarshal(body.Payload, &payload); err != nil {
			fail(w, http.StatusBadRequest, "invalid payload")
			return
		}
	}

	h.hub.Publish(bus.Message{Type: bus.MessageType(body.Type), Payload: payload})
	ok(w)
}

// handleListCommands returns the instant commands the UPS advertises.
func (h *Handler) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if h.exec == nil {
		fail(w, http.StatusServiceUnavailable, "command executor unavailable")
		return
	}
	cmds, err := h.exec.ListCommands(r.Context())
	if err != nil {
		fail(w, http.StatusBadGateway, err.Error())
		return
	}
	okData(w, cmds)
}

// handleExecuteCommand runs a named instant command.
func (h *Handler) handleExecuteCommand(w http.ResponseWriter, r *http.Request) {
	if h.exec == nil {
		fail(w, http.StatusServiceUnavailable, "command executor unavailable")
		return
	}
	var body struct {
		Name     string `json:"name"`
		IssuedBy string `json:"issued_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		fail(w, http.StatusBadRequest, "name is required")
		return
	}
	result, err := h.exec.Execute(r.Context(), body.Name, body.IssuedBy)
	if err != nil {
		fail(w, http.StatusBadGateway, err.Error())
		return
	}
	okData(w, result)
}

// handleSetVariable writes a UPS variable and records the change.
func (h *Handler) handleSetVariable(w http.ResponseWriter, r *http.Request) {
	if h.exec == nil {
		fail(w, http.StatusServiceUnavailable, "command executor unavailable")
		return
	}
	var body struct {
		Name     string `json:"name"`
		Value    string `json:"value"`
		IssuedBy string `json:"issued_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		fail(w, http.StatusBadRequest, "name and value are required")
		return
	}
	result, err := h.exec.SetVariable(r.Context(), body.Name, body.Value, body.IssuedBy)
	if err != nil {
		fail(w, http.StatusBadGateway, err.Error())
		return
	}
	okData(w, result)
}

// handleWS upgrades the connection to a WebSocket and registers it with
// the hub.
func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	client, err := bus.NewClient(h.hub, w, r, h.log)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	client.Run()
}
