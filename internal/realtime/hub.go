package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"mindcare/backend/internal/logger"
)

// Hub fans bot replies out to every open socket of a user. Sends never
// block; a client whose buffer is full misses the frame and will see the
// message on its next history fetch.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

type Client struct {
	UserID string
	Send   chan []byte
	once   sync.Once
}

// Event is the envelope written to sockets.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func NewHub() *Hub {
	return &Hub{clients: map[string]map[*Client]struct{}{}}
}

func NewClient(userID string) *Client {
	return &Client{UserID: userID, Send: make(chan []byte, 16)}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = map[*Client]struct{}{}
	}
	h.clients[client.UserID][client] = struct{}{}
	logger.Log.Debug("ws_client_registered", zap.String("user_id", client.UserID), zap.Int("sockets", len(h.clients[client.UserID])))
}

// Unregister is safe to call more than once per client.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[client.UserID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	client.once.Do(func() { close(client.Send) })
}

// Broadcast sends payload to the user's sockets and reports how many
// received it.
func (h *Hub) Broadcast(userID string, eventType string, payload any) int {
	message, err := json.Marshal(Event{Type: eventType, Data: payload})
	if err != nil {
		logger.Log.Error("ws_marshal_failed", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for client := range h.clients[userID] {
		select {
		case client.Send <- message:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
