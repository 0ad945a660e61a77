// Package events provides a small synchronous event emitter used by the
// websocket and realtime sessions.
package events

import (
	"log/slog"
	"reflect"
	"sync"
)

// Handler receives the payload of an emitted event.
type Handler func(payload any)

// Emitter dispatches named events to registered handlers. Handlers run
// synchronously in registration order. A nil Emitter is not usable; construct
// one with New or NewRestricted.
type Emitter struct {
	mu       sync.Mutex
	handlers map[string][]registration
	known    map[string]bool
	logger   *slog.Logger
}

type registration struct {
	fn  Handler
	key uintptr
}

// New creates an emitter that accepts any event name.
func New(logger *slog.Logger) *Emitter {
	return NewRestricted(logger)
}

// NewRestricted creates an emitter limited to the given event names.
// Registrations for unknown events are logged and ignored. With no names the
// emitter accepts any event.
func NewRestricted(logger *slog.Logger, names ...string) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Emitter{
		handlers: make(map[string][]registration),
		logger:   logger,
	}
	if len(names) > 0 {
		e.known = make(map[string]bool, len(names))
		for _, n := range names {
			e.known[n] = true
		}
	}
	return e
}

// On registers a handler for an event. Registering the same function twice
// for the same event is a no-op.
func (e *Emitter) On(event string, fn Handler) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.known != nil && !e.known[event] {
		e.logger.Warn("unknown event type", "event", event)
		return
	}

	key := reflect.ValueOf(fn).Pointer()
	for _, reg := range e.handlers[event] {
		if reg.key == key {
			return
		}
	}
	e.handlers[event] = append(e.handlers[event], registration{fn: fn, key: key})
}

// Off removes a handler for an event. A nil handler removes all handlers for
// the event.
func (e *Emitter) Off(event string, fn Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if fn == nil {
		delete(e.handlers, event)
		return
	}
	key := reflect.ValueOf(fn).Pointer()
	regs := e.handlers[event]
	for i, reg := range regs {
		if reg.key == key {
			e.handlers[event] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// Emit invokes all handlers registered for the event. A panicking handler is
// recovered and logged; remaining handlers still run.
func (e *Emitter) Emit(event string, payload any) {
	e.mu.Lock()
	regs := make([]registration, len(e.handlers[event]))
	copy(regs, e.handlers[event])
	e.mu.Unlock()

	for _, reg := range regs {
		e.invoke(event, reg.fn, payload)
	}
}

func (e *Emitter) invoke(event string, fn Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event handler panicked", "event", event, "panic", r)
		}
	}()
	fn(payload)
}
