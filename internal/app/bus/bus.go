/*
Package bus implements the event dispatcher that decouples frame arrival
from feature reactions and firewalls those reactions from each other.

The connection supervisor publishes every inbound frame as an event named
"event:<discriminator>"; feature modules subscribe by event name. Each
delivery runs on its own goroutine with a recover boundary, so a panicking
handler is logged and discarded without affecting the dispatcher, the
supervisor, or any other handler.
*/
package bus

import (
	"runtime/debug"
	"sync"

	"howdybot/internal/app/wire"
	"howdybot/internal/pkg/logx"
)

// DefaultMaxConcurrent is the default ceiling on concurrently executing
// handler deliveries across all events.
const DefaultMaxConcurrent = 64

// Handler reacts to one event occurrence. Handlers run concurrently with
// each other and with subsequent frames' state updates; they must not assume
// they observe the shared state in arrival order.
type Handler func(frame wire.Frame)

type registration struct {
	name string
	fn   Handler
}

// Bus is the event dispatcher. The zero value is not usable; construct with
// New.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]registration

	// sem bounds the number of handler deliveries executing at once. The
	// slot is taken inside the delivery goroutine, so Emit itself never
	// blocks; excess deliveries queue on the semaphore, not in the emitter.
	sem chan struct{}
}

// New creates a dispatcher allowing at most maxConcurrent handler deliveries
// to execute simultaneously. Values below one fall back to
// DefaultMaxConcurrent.
func New(maxConcurrent int) *Bus {
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Bus{
		handlers: make(map[string][]registration),
		sem:      make(chan struct{}, maxConcurrent),
	}
}

// On registers fn for the named event. handlerName identifies the handler in
// failure logs; use "<feature>.<purpose>". Registration order carries no
// delivery-order guarantee.
func (b *Bus) On(event, handlerName string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[event] = append(b.handlers[event], registration{name: handlerName, fn: fn})

	logx.Logger().Debug().
		Str("event", event).
		Str("handler", handlerName).
		Msg("Handler registered")
}

// Emit delivers frame to every handler registered for event, each on its own
// goroutine. No registered handlers is a no-op. Emit never blocks on handler
// completion and never fails because a handler failed.
func (b *Bus) Emit(event string, frame wire.Frame) {
	b.mu.RLock()
	registrations := b.handlers[event]
	b.mu.RUnlock()

	for _, reg := range registrations {
		reg := reg
		go func() {
			b.sem <- struct{}{}
			defer func() { <-b.sem }()

			defer func() {
				if r := recover(); r != nil {
					logx.Logger().Error().
						Str("event", event).
						Str("handler", reg.name).
						Interface("panic", r).
						Bytes("stack", debug.Stack()).
						Msg("Handler panicked; isolating failure")
				}
			}()

			reg.fn(frame)
		}()
	}
}

// HandlerCount returns the number of handlers registered for event.
func (b *Bus) HandlerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}
