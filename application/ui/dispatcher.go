package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Handler reacts to one event.
type Handler func(ctx context.Context, ev Event) error

// Dispatcher delivers UI events to the handlers subscribed to their type.
type Dispatcher struct {
	handlers map[EventType][]Handler
	mu       sync.RWMutex
}

// NewDispatcher creates a dispatcher without subscriptions
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for an event type
func (d *Dispatcher) Subscribe(t EventType, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[t] = append(d.handlers[t], h)
}

// Dispatch runs every handler of the event's type in registration order.
// A failing handler does not stop the others; all errors are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	d.mu.RLock()
	handlers := d.handlers[ev.Type()]
	d.mu.RUnlock()

	var errs []error
	for i, h := range handlers {
		if err := h(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("handler %d for %s failed: %w", i, ev.Type(), err))
		}
	}
	return errors.Join(errs...)
}

// ClearAll removes every subscription
func (d *Dispatcher) ClearAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers = make(map[EventType][]Handler)
}
