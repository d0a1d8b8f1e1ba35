package eventbus

import "context"

// Handler processes events on the bus. Handlers are called in priority order
// (lower priority value = called earlier) for matching event types.
type Handler interface {
	// ID returns a unique identifier for this handler.
	ID() string

	// Handles returns the event types this handler processes.
	Handles() []EventType

	// Priority determines call order. Lower values are called first.
	Priority() int

	// Handle processes a single event and may modify the aggregated result.
	// Returning an error logs a warning but does not stop the handler chain.
	Handle(ctx context.Context, event *Event, result *Result) error
}

// funcHandler adapts a plain function to Handler.
type funcHandler struct {
	id       string
	priority int
	handles  []EventType
	fn       func(ctx context.Context, event *Event) error
}

// HandlerFunc wraps fn as a Handler for the given event types. With no types
// it handles every event.
func HandlerFunc(id string, priority int, fn func(ctx context.Context, event *Event) error, types ...EventType) Handler {
	if len(types) == 0 {
		types = AllEventTypes
	}
	return &funcHandler{id: id, priority: priority, handles: types, fn: fn}
}

func (h *funcHandler) ID() string           { return h.id }
func (h *funcHandler) Handles() []EventType { return h.handles }
func (h *funcHandler) Priority() int        { return h.priority }

func (h *funcHandler) Handle(ctx context.Context, event *Event, _ *Result) error {
	return h.fn(ctx, event)
}
