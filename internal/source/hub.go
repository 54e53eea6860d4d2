package source

import (
	"encoding/json"
	"math"
	"sync"

	"github.com/google/uuid"
)

// Sample is one processed angle on the live feed.
type Sample struct {
	T     float64  `json:"t"`
	Angle *float64 `json:"angle"`
	Mode  string   `json:"mode"`
}

// MarshalJSON writes a non-finite angle as null; encoding/json rejects NaN.
func (s Sample) MarshalJSON() ([]byte, error) {
	type plain Sample
	if s.Angle != nil && (math.IsNaN(*s.Angle) || math.IsInf(*s.Angle, 0)) {
		s.Angle = nil
	}
	return json.Marshal(plain(s))
}

// subscriberBuffer is how many samples a slow subscriber may lag before
// samples are dropped for it.
const subscriberBuffer = 32

// Hub fans samples out to live subscribers. Publish never blocks; a full
// subscriber misses samples instead.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]chan Sample
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]chan Sample)}
}

// Subscribe registers a new receiver. The channel is closed by Unsubscribe
// or Close.
func (h *Hub) Subscribe() (string, <-chan Sample) {
	id := uuid.NewString()
	ch := make(chan Sample, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subs[id] = ch
	return id, ch
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		close(ch)
		delete(h.subs, id)
	}
}

func (h *Hub) Publish(s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber. Later subscriptions receive a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}
