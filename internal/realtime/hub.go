package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event is one live update delivered to subscribers of a path.
type Event struct {
	Type      string      `json:"type"`
	Path      string      `json:"path"`
	Value     interface{} `json:"value,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

const (
	EventSnapshot = "snapshot"
	EventRemoved  = "removed"
)

type subscriber struct {
	ch chan Event
}

// Hub is a path-keyed in-process pubsub. Document and key-value writes publish
// snapshots under their ref path; views and websocket clients subscribe for the
// lifetime of a view and cancel on unmount.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
	logger      *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*subscriber]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener on path. The returned cancel func releases the
// subscription; after cancel the channel is closed and must not be read as live.
func (h *Hub) Subscribe(path string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, 16)}

	h.mu.Lock()
	if h.subscribers[path] == nil {
		h.subscribers[path] = make(map[*subscriber]struct{})
	}
	h.subscribers[path][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if subs, ok := h.subscribers[path]; ok {
				delete(subs, sub)
				if len(subs) == 0 {
					delete(h.subscribers, path)
				}
			}
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers an event to every subscriber of event.Path. Slow
// subscribers are skipped rather than blocked on.
func (h *Hub) Publish(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers[event.Path] {
		select {
		case sub.ch <- event:
		default:
			h.logger.Warn("dropping realtime event, subscriber is full",
				zap.String("path", event.Path))
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamWS upgrades the connection and streams the given event channel until
// the client goes away or the channel is closed. An optional initial event is
// written before any live ones; cancel releases the upstream subscription.
func (h *Hub) StreamWS(w http.ResponseWriter, r *http.Request, initial *Event, events <-chan Event, cancel func()) {
	if cancel != nil {
		defer cancel()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if initial != nil {
		if err := h.writeEvent(conn, *initial); err != nil {
			return
		}
	}

	done := make(chan struct{})

	// reader: just consume pings/close
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := h.writeEvent(conn, event); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Hub) writeEvent(conn *websocket.Conn, event Event) error {
	encoded, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal realtime event", zap.Error(err))
		return nil
	}
	return conn.WriteMessage(websocket.TextMessage, encoded)
}
