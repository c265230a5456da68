// Package reload fans live-reload notifications out to connected browsers.
//
// Each connection handler owns one Subscriber. Broadcast never blocks: a
// subscriber that cannot accept a message is dropped from the registry in
// the same pass, which is the only cleanup path.
package reload

import (
	"sync"

	"github.com/google/uuid"

	"github.com/conneroisu/shtml/internal/monitoring"
)

// Wire tokens.
const (
	MessageConnected = "connected"
	MessageReload    = "reload"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 8

// Subscriber is one registered live-reload connection.
type Subscriber struct {
	ID     string
	ch     chan string
	closed chan struct{}
	once   sync.Once
}

// Messages delivers broadcast tokens to the owning handler.
func (s *Subscriber) Messages() <-chan string {
	return s.ch
}

// Done is closed once the subscriber has been removed from its hub.
func (s *Subscriber) Done() <-chan struct{} {
	return s.closed
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.closed) })
}

// Hub is the subscriber registry.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*Subscriber
	buffer      int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return NewHubWithBuffer(DefaultBuffer)
}

// NewHubWithBuffer creates a hub whose subscribers queue up to buffer messages.
func NewHubWithBuffer(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		buffer:      buffer,
	}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:     uuid.NewString(),
		ch:     make(chan string, h.buffer),
		closed: make(chan struct{}),
	}

	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	n := len(h.subscribers)
	h.mu.Unlock()

	monitoring.ReloadSubscribers.Set(float64(n))
	return sub
}

// Unsubscribe removes sub. It is safe to call more than once and after the
// hub already pruned it.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub.ID]; ok {
		delete(h.subscribers, sub.ID)
	}
	n := len(h.subscribers)
	h.mu.Unlock()

	sub.close()
	monitoring.ReloadSubscribers.Set(float64(n))
}

// Broadcast offers msg to every subscriber without blocking. Subscribers that
// are gone or whose queue is full are pruned. It returns the number of
// subscribers that received msg.
func (h *Hub) Broadcast(msg string) int {
	h.mu.Lock()
	delivered := 0
	var pruned []*Subscriber
	for id, sub := range h.subscribers {
		select {
		case <-sub.closed:
			delete(h.subscribers, id)
			pruned = append(pruned, sub)
			continue
		default:
		}

		select {
		case sub.ch <- msg:
			delivered++
		default:
			delete(h.subscribers, id)
			pruned = append(pruned, sub)
		}
	}
	n := len(h.subscribers)
	h.mu.Unlock()

	for _, sub := range pruned {
		sub.close()
	}

	monitoring.ReloadBroadcastsTotal.Inc()
	monitoring.ReloadPrunedTotal.Add(float64(len(pruned)))
	monitoring.ReloadSubscribers.Set(float64(n))
	return delivered
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close removes every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[string]*Subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	monitoring.ReloadSubscribers.Set(0)
}

// Disconnect marks sub as gone without removing it, so the next Broadcast
// prunes it. Handlers call it when their connection fails.
func (s *Subscriber) Disconnect() {
	s.close()
}
