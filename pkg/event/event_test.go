package event_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lacocina/comanda/pkg/event"
)

func TestFireReachesAllListeners(t *testing.T) {
	event.Flush()
	defer event.Flush()

	var count atomic.Int32
	event.Listen(event.OrderCreated, func(interface{}) { count.Add(1) })
	event.Listen(event.OrderCreated, func(interface{}) { count.Add(1) })

	event.Fire(event.OrderCreated, nil)

	if got := count.Load(); got != 2 {
		t.Errorf("expected 2 handler calls, got %d", got)
	}
}

func TestFirePassesPayload(t *testing.T) {
	event.Flush()
	defer event.Flush()

	var got interface{}
	event.Listen(event.OrderStatusChanged, func(p interface{}) { got = p })

	event.Fire(event.OrderStatusChanged, "cancelled")

	if got != "cancelled" {
		t.Errorf("expected payload %q, got %v", "cancelled", got)
	}
}

func TestFireAsyncDoesNotDropEvents(t *testing.T) {
	event.Flush()
	defer event.Flush()

	const n = 200
	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(n)

	event.Listen(event.OrderCreated, func(interface{}) {
		count.Add(1)
		wg.Done()
	})

	for i := 0; i < n; i++ {
		event.FireAsync(event.OrderCreated, i)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for async handlers")
	}

	if got := count.Load(); got != n {
		t.Errorf("expected %d handler calls, got %d", n, got)
	}
}
