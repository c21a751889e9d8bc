package bus

import (
	"context"
	"sync"
)

// Hub is the central broadcast point for WebSocket clients. Every connected
// client receives every published Message; there is no per-topic
// subscription model in this domain.
//
// Design: single-writer event loop for the client registry (register,
// unregister). Publish holds a read-lock only long enough to copy the
// client set, then sends outside the lock so a slow client cannot stall
// the hub.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
}

// NewHub creates an idle Hub. Call Run in a goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
	}
}

// Run starts the hub's event loop. It must be called exactly once, in its
// own goroutine, and exits when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[*Client]struct{})
			h.mu.Unlock()
			return
		}
	}
}

// Publish sends msg to every connected client. Best-effort delivery: a
// client whose send buffer is full is considered too slow and is dropped
// rather than blocking the others.
func (h *Hub) Publish(msg Message) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			h.unregister <- c
		}
	}
}

// PublishSample implements poller.SamplePublisher.
func (h *Hub) PublishSample(snapshot map[string]any) {
	h.Publish(Message{Type: MsgSample, Payload: snapshot})
}

// PublishStats implements poller.SamplePublisher.
func (h *Hub) PublishStats(stats any) {
	h.Publish(Message{Type: MsgStats, Payload: stats})
}

// PublishEvent implements events.Publisher, broadcasting a persisted UPS
// event to every connected client.
func (h *Hub) PublishEvent(payload any) {
	h.Publish(Message{Type: MsgNUTEvent, Payload: payload})
}

// PublishCommandExecuted implements commands.Publisher, broadcasting the
// outcome of one instant-command execution.
func (h *Hub) PublishCommandExecuted(payload any) {
	h.Publish(Message{Type: MsgCommandExecuted, Payload: payload})
}

// PublishCommandStats implements commands.Publisher, refreshing the
// command history stats view after an execution.
func (h *Hub) PublishCommandStats(payload any) {
	h.Publish(Message{Type: MsgCommandStatsUpdate, Payload: payload})
}

// PublishCommandLogs implements commands.Publisher, refreshing the command
// history log view after an execution.
func (h *Hub) PublishCommandLogs(payload any) {
	h.Publish(Message{Type: MsgCommandLogsUpdate, Payload: payload})
}

// PublishVariableUpdate implements commands.Publisher, broadcasting the
// outcome of a writable-variable change.
func (h *Hub) PublishVariableUpdate(payload any) {
	h.Publish(Message{Type: MsgVariableUpdate, Payload: payload})
}

// Subscribe registers c with the hub.
func (h *Hub) Subscribe(c *Client) {
	h.register <- c
}

// Unsubscribe removes c from the hub.
func (h *Hub) Unsubscribe(c *Client) {
	h.unregister <- c
}

// ConnectedCount returns the number of currently connected clients.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
