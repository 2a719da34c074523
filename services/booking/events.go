package booking

import "context"

// EventType identifies a post-commit domain event.
type EventType string

const (
	EventSlotBooked     EventType = "slot_booked"
	EventSlotCanceled   EventType = "slot_canceled"
	EventWaitlistJoined EventType = "waitlist_joined"
)

// Event is emitted after a state transition has been persisted. All external
// side effects that are fire-and-forget (the action webhook) are driven off
// these events so the engine itself never handles their failures.
type Event struct {
	Type       EventType `json:"type"`
	Code       string    `json:"code,omitempty"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Topic      string    `json:"topic,omitempty"`
	UserAlias  string    `json:"user_alias,omitempty"`
	WaitlistID string    `json:"waitlist_id,omitempty"`
}

// EventDispatcher delivers events to the effect pipeline. Dispatch must not
// block on network I/O and must never return an error to the engine.
type EventDispatcher interface {
	Dispatch(ctx context.Context, evt Event)
}
