// Package event is an in-process dispatcher for order lifecycle events.
//
// The order engine fires an OrderEvent after every persisted transition;
// the live feed, the Kafka publisher and the audit log subscribe to it.
package event

import (
	"sync"
	"time"
)

// OrderEvent describes one order changing status.
type OrderEvent struct {
	OrderID int       `json:"order_id"`
	UserID  int       `json:"user_id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Total   float64   `json:"total"`
	At      time.Time `json:"at"`
}

// Handler receives an event.
type Handler func(e OrderEvent)

// Bus fans events out to its listeners.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	wg       sync.WaitGroup
}

// NewBus returns a bus with no listeners.
func NewBus() *Bus {
	return &Bus{}
}

// Listen registers a handler.
func (b *Bus) Listen(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) snapshot() []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := make([]Handler, len(b.handlers))
	copy(hs, b.handlers)
	return hs
}

// Fire dispatches e synchronously to all listeners.
func (b *Bus) Fire(e OrderEvent) {
	for _, h := range b.snapshot() {
		h(e)
	}
}

// FireAsync dispatches e to all listeners concurrently and returns at once.
// Use Wait to drain in-flight handlers on shutdown.
func (b *Bus) FireAsync(e OrderEvent) {
	if b == nil {
		return
	}
	for _, h := range b.snapshot() {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			h(e)
		}(h)
	}
}

// Wait blocks until every FireAsync handler has returned.
func (b *Bus) Wait() { b.wg.Wait() }

// Flush removes all listeners.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = nil
}
