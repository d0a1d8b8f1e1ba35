// Package eventbus delivers change notifications for committed mutations.
package eventbus

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/steveyegge/boards/internal/debug"
)

// Bus dispatches events to registered handlers in-process. Handlers are
// indexed by event type and kept in priority order.
type Bus struct {
	mu     sync.RWMutex
	byType map[EventType][]Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{byType: make(map[EventType][]Handler)}
}

// Register adds h for every type it handles. Handlers of equal priority run
// in registration order.
func (b *Bus) Register(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range h.Handles() {
		old := b.byType[t]
		chain := make([]Handler, 0, len(old)+1)
		chain = append(append(chain, old...), h)
		sort.SliceStable(chain, func(i, j int) bool { return chain[i].Priority() < chain[j].Priority() })
		b.byType[t] = chain
	}
}

// Dispatch runs the handlers registered for the event's type, lowest
// priority first. A failing handler is recorded as a warning and the chain
// continues; only a cancelled context stops it.
func (b *Bus) Dispatch(ctx context.Context, event *Event) (*Result, error) {
	if event == nil {
		return nil, fmt.Errorf("eventbus: nil event")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	chain := b.byType[event.Type]
	b.mu.RUnlock()

	result := &Result{}
	for _, h := range chain {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("eventbus: %s: %w", event.Type, err)
		}
		result.Handled++
		if err := h.Handle(ctx, event, result); err != nil {
			debug.Logf("eventbus: handler %q failed on %s: %v\n", h.ID(), event.Type, err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", h.ID(), err))
		}
	}
	return result, nil
}
