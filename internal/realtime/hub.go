package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Client is a single subscriber connection. Send must not block: the hub
// calls it while fanning out an event inside the publishing request.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Event tells subscribers that an entity in a workspace changed so they can
// invalidate the matching cache namespace.
type Event struct {
	Type        string `json:"type"` // e.g. task.created
	WorkspaceID string `json:"workspaceId"`
	Entity      string `json:"entity"`
	EntityID    string `json:"entityId"`
	ActorID     string `json:"actorId"`
	Version     int    `json:"version"`
}

// Hub maintains active connections per workspace and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[Client]struct{}
	log     zerolog.Logger
}

// NewHub returns an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[Client]struct{}),
		log:     log.With().Str("component", "realtime").Logger(),
	}
}

// Register adds a client under a workspace.
func (h *Hub) Register(workspaceID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[workspaceID]; !ok {
		h.clients[workspaceID] = make(map[Client]struct{})
	}
	h.clients[workspaceID][client] = struct{}{}
}

// Unregister removes a client; empty workspaces are dropped.
func (h *Hub) Unregister(workspaceID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[workspaceID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, workspaceID)
		}
	}
}

// Subscribers returns the number of clients listening on a workspace.
func (h *Hub) Subscribers(workspaceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[workspaceID])
}

// Publish hands evt to every client of its workspace. A client that cannot
// take it is skipped; its connection cleans up after itself.
func (h *Hub) Publish(evt Event) {
	if evt.Version == 0 {
		evt.Version = 1
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		h.log.Error().Err(err).Str("type", evt.Type).Msg("encoding event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[evt.WorkspaceID] {
		if !c.Send(payload) {
			h.log.Debug().Str("workspace_id", evt.WorkspaceID).Msg("dropped event for slow or closed client")
		}
	}
}
