// Package sse streams order events to dashboards as Server-Sent Events, for
// clients that cannot hold a WebSocket (curl, EventSource behind proxies).
//
//	GET /api/orders/stream
//
//	event: order
//	data: {"order_id":7,"from":"pending","to":"paid",...}
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shashiranjanraj/beanleaf/pkg/event"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
)

// Stream represents an active SSE connection to one client.
type Stream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewStream sets the SSE headers. It returns nil if the ResponseWriter does
// not support flushing.
func NewStream(w http.ResponseWriter) *Stream {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, flusher: flusher}
}

// Send writes a named SSE event with a JSON-encoded data payload.
func (s *Stream) Send(name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes an SSE comment, used as a keepalive heartbeat.
func (s *Stream) Comment(msg string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", msg); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Broker fans order events out to every connected stream. A subscriber that
// falls more than its buffer behind misses events rather than blocking the
// publisher.
type Broker struct {
	mu        sync.Mutex
	subs      map[chan event.OrderEvent]struct{}
	heartbeat time.Duration
	buffer    int
}

func NewBroker() *Broker {
	return &Broker{
		subs:      make(map[chan event.OrderEvent]struct{}),
		heartbeat: 15 * time.Second,
		buffer:    16,
	}
}

// SetHeartbeat changes how often idle streams get a keepalive comment.
func (b *Broker) SetHeartbeat(d time.Duration) {
	if d > 0 {
		b.heartbeat = d
	}
}

// Publish delivers e to every subscriber without blocking. It has the
// event.Handler signature so it can listen on a bus directly.
func (b *Broker) Publish(e event.OrderEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			logger.Debug("sse: dropping event for slow client", "order_id", e.OrderID)
		}
	}
}

// Subscribers returns the number of open streams.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broker) subscribe() chan event.OrderEvent {
	ch := make(chan event.OrderEvent, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) unsubscribe(ch chan event.OrderEvent) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// ServeHTTP streams events until the client goes away.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stream := NewStream(w)
	if stream == nil {
		return
	}
	ch := b.subscribe()
	defer b.unsubscribe(ch)

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-ch:
			if err := stream.Send("order", e); err != nil {
				return
			}
		case <-ticker.C:
			if err := stream.Comment("keepalive"); err != nil {
				return
			}
		}
	}
}
