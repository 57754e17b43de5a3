package docstore

import (
	"sync"
)

// Hub fans out collection change signals to live queries. Signals carry no
// payload: a subscriber re-runs its query, so a full buffer means a re-run is
// already pending and further signals can be dropped.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan struct{}]struct{}),
	}
}

// Subscribe registers interest in collection. The returned func unregisters
// and closes the channel.
func (h *Hub) Subscribe(collection string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	subs, ok := h.subscribers[collection]
	if !ok {
		subs = make(map[chan struct{}]struct{})
		h.subscribers[collection] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers[collection], ch)
			if len(h.subscribers[collection]) == 0 {
				delete(h.subscribers, collection)
			}
			close(ch)
			h.mu.Unlock()
		})
	}
}

// Publish signals every subscriber of collection. Never blocks.
func (h *Hub) Publish(collection string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Count returns the number of live subscriptions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.subscribers {
		n += len(subs)
	}
	return n
}
