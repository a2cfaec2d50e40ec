package event

import "github.com/gin-gonic/gin"

// ContextKey is where Track stores the *EventContext for the handler to fill in.
const ContextKey = "eventCtx"

// EventContext describes the mutation a handler performed. Nothing is published unless the
// handler sets NewData.
type EventContext struct {
	Resource  string
	Operation string
	// Room scopes the event; empty publishes to every session.
	Room    string
	OldData interface{}
	NewData interface{}
	// Fields limits the change set computed between OldData and NewData.
	Fields     []string
	Additional map[string]interface{}
}

// Name is the event name clients subscribe to, e.g. "preferences:updated".
func (e *EventContext) Name() string {
	return e.Resource + ":" + e.Operation
}

// FromContext returns the event context installed by Track, or nil on untracked routes.
func FromContext(c *gin.Context) *EventContext {
	v, ok := c.Get(ContextKey)
	if !ok {
		return nil
	}
	ctx, _ := v.(*EventContext)
	return ctx
}

type FieldExtractor interface {
	ExtractFields(obj interface{}, fields []string) map[string]interface{}
	ExtractChanges(old, new interface{}, fields []string) map[string]interface{}
}
