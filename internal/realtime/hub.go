// Package realtime streams newly ingested events to dashboard viewers over WebSocket.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains workspace_id -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: every instance subscribes for the workspaces
// its clients watch, and publishes go through Redis so each instance delivers exactly once.
type Hub struct {
	// workspaceID -> map[clientID]*Client
	workspaces map[uuid.UUID]map[string]*Client
	subs       map[uuid.UUID]func() // cancel Redis subscription per workspace
	mu         sync.RWMutex
	logger     *zap.Logger
	redis      RedisPublisher
	redisSub   RedisSubscriber
}

// RedisPublisher publishes to Redis for cross-instance broadcast.
type RedisPublisher interface {
	PublishWorkspaceEvent(workspaceID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to workspace channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeWorkspace(workspaceID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a hub. Both Redis sides may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		workspaces: make(map[uuid.UUID]map[string]*Client),
		subs:       make(map[uuid.UUID]func()),
		logger:     logger,
		redis:      redisPub,
		redisSub:   redisSub,
	}
}

// Register adds a client to a workspace room. Starts the Redis subscription for the workspace on the first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.workspaces[c.WorkspaceID] == nil {
		h.workspaces[c.WorkspaceID] = make(map[string]*Client)
		if h.redisSub != nil {
			workspaceID := c.WorkspaceID
			cancel, err := h.redisSub.SubscribeWorkspace(workspaceID, func(event string, payload []byte) {
				h.Broadcast(workspaceID, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("redis subscribe failed", zap.String("workspace_id", workspaceID.String()), zap.Error(err))
			} else {
				h.subs[workspaceID] = cancel
			}
		}
	}
	h.workspaces[c.WorkspaceID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined live feed", zap.String("client_id", c.ID), zap.String("workspace_id", c.WorkspaceID.String()))
}

// Unregister removes a client. Cancels the Redis subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.workspaces[c.WorkspaceID]; ok {
		if _, ok := m[c.ID]; ok {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.workspaces, c.WorkspaceID)
			if cancel, ok := h.subs[c.WorkspaceID]; ok {
				cancel()
				delete(h.subs, c.WorkspaceID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left live feed", zap.String("client_id", c.ID), zap.String("workspace_id", c.WorkspaceID.String()))
}

// Broadcast sends a message to all local clients watching a workspace.
func (h *Hub) Broadcast(workspaceID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.workspaces[workspaceID] {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// PublishWorkspace delivers an event to every instance's watchers of the workspace. With Redis
// the subscriber callback performs the broadcast, including on this instance; without it the
// broadcast is local.
func (h *Hub) PublishWorkspace(workspaceID uuid.UUID, event string, payload interface{}) {
	if h.redis == nil {
		h.Broadcast(workspaceID, event, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := h.redis.PublishWorkspaceEvent(workspaceID, event, data); err != nil {
		h.logger.Warn("redis publish failed", zap.String("workspace_id", workspaceID.String()), zap.Error(err))
	}
}

// Watchers returns the number of connected clients for a workspace.
func (h *Hub) Watchers(workspaceID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.workspaces[workspaceID])
}
