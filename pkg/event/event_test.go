package event_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/beanleaf/pkg/event"
)

func TestBus_FireReachesEveryListener(t *testing.T) {
	bus := event.NewBus()
	var got []string
	bus.Listen(func(e event.OrderEvent) { got = append(got, "a:"+e.To) })
	bus.Listen(func(e event.OrderEvent) { got = append(got, "b:"+e.To) })

	bus.Fire(event.OrderEvent{OrderID: 1, From: "pending", To: "paid"})
	assert.Equal(t, []string{"a:paid", "b:paid"}, got)
}

func TestBus_FireAsyncAndWait(t *testing.T) {
	bus := event.NewBus()
	var n atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Listen(func(event.OrderEvent) { n.Add(1) })
	}

	bus.FireAsync(event.OrderEvent{OrderID: 2})
	bus.Wait()
	assert.Equal(t, int32(3), n.Load())

	bus.Flush()
	bus.Fire(event.OrderEvent{OrderID: 3})
	assert.Equal(t, int32(3), n.Load())
}

func TestBus_NilIsSafe(t *testing.T) {
	var bus *event.Bus
	assert.NotPanics(t, func() { bus.FireAsync(event.OrderEvent{}) })
}
