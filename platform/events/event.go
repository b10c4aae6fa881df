// Package events is the in-process publish/subscribe bus modules use to
// react to each other without importing each other.
package events

import (
	"context"
	"time"
)

// Event is anything published on the bus.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the occurrence time. Timestamps are UTC at microsecond
// precision so they survive a round trip through Postgres or a task payload.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps an event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEventAt(time.Now())
}

// BaseEventAt stamps an event that happened at t, e.g. one replayed from a queue.
func BaseEventAt(t time.Time) BaseEvent {
	return BaseEvent{Timestamp: t.UTC().Truncate(time.Microsecond)}
}

// Handler reacts to one event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes events to the handlers subscribed under their EventName.
type Bus interface {
	// Publish hands the event to its handlers and returns without waiting.
	Publish(ctx context.Context, event Event)
	// PublishSync runs the handlers and returns the first error.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
