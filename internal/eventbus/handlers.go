package eventbus

import (
	"context"

	"github.com/steveyegge/boards/internal/debug"
)

// EventLogHandler appends every event to the debug events log.
type EventLogHandler struct{}

func (EventLogHandler) ID() string           { return "event-log" }
func (EventLogHandler) Handles() []EventType { return AllEventTypes }
func (EventLogHandler) Priority() int        { return 100 }

func (EventLogHandler) Handle(_ context.Context, event *Event, _ *Result) error {
	debug.LogEvent(string(event.Type), event.EntityID, event.Actor, event.Summary)
	return nil
}
