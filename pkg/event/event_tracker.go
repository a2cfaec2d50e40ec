package event

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/practice-api/internal/realtime"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

// Tracker publishes a real-time event after a tracked handler succeeds.
type Tracker struct {
	publisher realtime.Publisher
	extractor FieldExtractor
	logger    *logger.Logger
}

func NewTracker(publisher realtime.Publisher, log *logger.Logger) *Tracker {
	return &Tracker{
		publisher: publisher,
		extractor: &DefaultFieldExtractor{},
		logger:    log.With("event_tracker"),
	}
}

// Track installs an EventContext for resource/action. The handler fills NewData, and the event
// goes out only when the response status is below 400.
func (t *Tracker) Track(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventCtx := &EventContext{
			Resource:  resource,
			Operation: action,
		}
		c.Set(ContextKey, eventCtx)

		c.Next()

		if eventCtx.NewData == nil || c.Writer.Status() >= 400 {
			return
		}

		scope := realtime.Global()
		if eventCtx.Room != "" {
			scope = realtime.Room(eventCtx.Room)
		}
		if err := t.publisher.Publish(c.Request.Context(), eventCtx.Name(), t.payload(eventCtx), scope); err != nil {
			t.logger.Warn("failed to publish tracked event", "error", err.Error(), "event", eventCtx.Name())
		}
	}
}

func (t *Tracker) payload(e *EventContext) interface{} {
	if e.OldData == nil && len(e.Additional) == 0 {
		return e.NewData
	}

	out := map[string]interface{}{"data": e.NewData}
	if e.OldData != nil && len(e.Fields) > 0 {
		out["changes"] = t.extractor.ExtractChanges(e.OldData, e.NewData, e.Fields)
	}
	for k, v := range e.Additional {
		out[k] = v
	}
	return out
}
