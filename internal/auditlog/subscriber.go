package auditlog

import (
	"context"
	"fmt"
	"log/slog"

	auditDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/auditlog"
	"github.com/cpdo/zoning-tracker/internal/core/events"
)

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

type Sink interface {
	Enqueue(entry *auditDatamodel.Entry) bool
}

// Recorder turns activity events into audit entries.
type Recorder struct {
	sink   Sink
	logger *slog.Logger
}

func NewRecorder(sink Sink, logger *slog.Logger) *Recorder {
	return &Recorder{sink: sink, logger: logger}
}

func (r *Recorder) Handle(_ context.Context, event events.Event) error {
	activity, ok := event.(*events.ActivityEvent)
	if !ok {
		return fmt.Errorf("auditlog: unexpected event %T for %s", event, event.EventType())
	}
	if !r.sink.Enqueue(FromEvent(activity)) {
		r.logger.Warn("audit entry not recorded", "event_id", event.EventID(), "event_type", event.EventType())
	}
	return nil
}

// SubscribeAll registers the recorder for every activity type.
func (r *Recorder) SubscribeAll(bus Subscriber) {
	for _, eventType := range events.ActivityTypes {
		bus.Subscribe(eventType, r.Handle)
	}
}
