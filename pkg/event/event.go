// Package event provides the in-process event dispatcher that connects
// the order workflow to its observers (websocket feed, cache
// invalidation) without coupling the service layer to them.
package event

import (
	"sync"

	"github.com/lacocina/comanda/pkg/workerpool"
)

// Event names fired by the order workflow.
const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status"
)

// Handler is a function that receives an event payload.
type Handler func(payload interface{})

var (
	mu       sync.RWMutex
	handlers = map[string][]Handler{}

	poolOnce sync.Once
	pool     *workerpool.Pool
)

func asyncPool() *workerpool.Pool {
	poolOnce.Do(func() {
		pool = workerpool.New(8)
	})
	return pool
}

// Listen registers a handler for the given event name.
func Listen(event string, handler Handler) {
	mu.Lock()
	defer mu.Unlock()
	handlers[event] = append(handlers[event], handler)
}

// Fire dispatches an event synchronously to all registered listeners.
func Fire(event string, payload interface{}) {
	for _, h := range snapshot(event) {
		h(payload)
	}
}

// FireAsync dispatches the event to all listeners on a bounded worker
// pool and returns immediately. If the pool is saturated the handler
// runs synchronously; events are never dropped.
func FireAsync(event string, payload interface{}) {
	for _, h := range snapshot(event) {
		h := h
		if err := asyncPool().Submit(func() { h(payload) }); err != nil {
			h(payload)
		}
	}
}

// Flush removes all listeners (useful in tests).
func Flush() {
	mu.Lock()
	defer mu.Unlock()
	handlers = map[string][]Handler{}
}

func snapshot(event string) []Handler {
	mu.RLock()
	defer mu.RUnlock()
	hs := make([]Handler, len(handlers[event]))
	copy(hs, handlers[event])
	return hs
}
