// Package ws рассылает открытым страницам панели события об устаревших данных.
package ws

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Event сообщение, отправляемое клиентам.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type invalidatePayload struct {
	Resources []string `json:"resources"`
}

// Hub хранит подключённых клиентов и рассылает им события.
type Hub struct {
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub создаёт Hub. Цикл обработки запускает Run.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run обрабатывает подключения и рассылку до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

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

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// буфер клиента переполнен
					close(c.send)
					delete(h.clients, c)
					h.logger.Warn("websocket client dropped", zap.String("client", c.id.String()))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast ставит событие в очередь на рассылку всем клиентам.
// Если очередь заполнена, событие отбрасывается.
func (h *Hub) Broadcast(event Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal websocket event", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast queue full", zap.String("type", event.Type))
	}
}

// NotifyInvalidated преобразует ключи кэша в названия разделов и рассылает
// событие invalidate. Подходит как cache.Listener.
func (h *Hub) NotifyInvalidated(keys []string) {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		resource, _, _ := strings.Cut(k, "|")
		seen[resource] = struct{}{}
	}

	resources := make([]string, 0, len(seen))
	for r := range seen {
		resources = append(resources, r)
	}
	sort.Strings(resources)

	payload, err := json.Marshal(invalidatePayload{Resources: resources})
	if err != nil {
		h.logger.Error("marshal invalidate payload", zap.Error(err))
		return
	}
	h.Broadcast(Event{Type: "invalidate", Payload: payload})
}

// Clients возвращает количество подключённых клиентов.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
