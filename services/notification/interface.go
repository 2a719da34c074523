package notification

import "context"

// Action is the kind of outbound notification.
type Action string

const (
	ActionBook     Action = "book"
	ActionWaitlist Action = "waitlist"
	ActionCancel   Action = "cancel"
)

// NotificationService delivers booking lifecycle notifications to the
// external automation webhook. Delivery is best-effort: failures are logged
// and reported, never escalated.
type NotificationService interface {
	TriggerAction(ctx context.Context, action Action, payload interface{}) error
}
