package tasks

import (
	"encoding/json"

	"advisorbot/services/booking"

	"github.com/hibiken/asynq"
)

const TypeEffectDeliver = "effect:deliver"

// NewEffectTask wraps a post-commit domain event into an asynq task so the
// effect worker owns delivery and retry policy.
func NewEffectTask(evt booking.Event) (*asynq.Task, error) {
	b, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEffectDeliver, b, asynq.MaxRetry(3)), nil
}
