// Package ai drives the tool-calling conversation loop between the chat
// surface, the Gemini model and the booking engine.
package ai

import (
	"context"
	"errors"

	"advisorbot/models"
)

// ErrEngineUnavailable marks model transport failures (quota, network).
// These are distinct from tool-level errors, which are relayed back to the
// model instead of surfacing to the caller.
var ErrEngineUnavailable = errors.New("model engine unavailable")

// AgentService is one conversation's orchestrator. Implementations own the
// conversation history exclusively; a service instance must not be shared
// across sessions.
type AgentService interface {
	// Chat runs one user turn through the bounded tool-calling loop and
	// returns the final reply with an optional presentation hint.
	Chat(ctx context.Context, userMessage string) (*models.ChatReply, error)
	// Reset drops the conversation history and detaches the transcript
	// session.
	Reset()
}
