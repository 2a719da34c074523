package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	"advisorbot/utils"

	ai "advisorbot/services/intelligence"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sessionCookie = "advisor_session"

// AgentFactory builds a fresh conversation orchestrator for a new session.
type AgentFactory func(ctx context.Context) (ai.AgentService, error)

type sessionEntry struct {
	agent    ai.AgentService
	lastSeen time.Time
}

// SessionRegistry maps session IDs to their conversation agents. Idle
// sessions are evicted by the janitor so abandoned conversations do not
// accumulate for the lifetime of the process.
type SessionRegistry struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	factory AgentFactory
	ttl     time.Duration
	logger  *zap.Logger
}

func NewSessionRegistry(factory AgentFactory, ttl time.Duration, logger *zap.Logger) *SessionRegistry {
	return &SessionRegistry{
		entries: make(map[string]*sessionEntry),
		factory: factory,
		ttl:     ttl,
		logger:  logger,
	}
}

// Agent returns the orchestrator for sessionID, creating one on first use
// and refreshing its idle clock.
func (r *SessionRegistry) Agent(ctx context.Context, sessionID string) (ai.AgentService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[sessionID]; ok {
		entry.lastSeen = time.Now()
		return entry.agent, nil
	}

	agent, err := r.factory(ctx)
	if err != nil {
		return nil, err
	}
	r.entries[sessionID] = &sessionEntry{agent: agent, lastSeen: time.Now()}
	return agent, nil
}

// Remove drops a session's agent, resetting its conversation first.
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[sessionID]; ok {
		entry.agent.Reset()
		delete(r.entries, sessionID)
	}
}

// Len reports how many sessions are live.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// StartJanitor sweeps idle sessions in the background.
func (r *SessionRegistry) StartJanitor(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if evicted := r.evictIdle(time.Now()); evicted > 0 {
				r.logger.Info("Evicted idle sessions", zap.Int("count", evicted))
			}
		}
	}()
}

func (r *SessionRegistry) evictIdle(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, entry := range r.entries {
		if now.Sub(entry.lastSeen) > r.ttl {
			entry.agent.Reset()
			delete(r.entries, id)
			evicted++
		}
	}
	return evicted
}

// ensureSession resolves the session ID from the signed cookie, issuing a
// fresh anonymous session when the cookie is absent or invalid.
func ensureSession(c *gin.Context, ttl time.Duration) string {
	if raw, err := c.Cookie(sessionCookie); err == nil && raw != "" {
		if id, err := utils.SessionIDFromToken(raw); err == nil {
			return id
		}
	}

	id := uuid.New().String()
	token, err := utils.GenerateSessionToken(id, ttl)
	if err != nil {
		utils.GetLogger().Warn("Failed to sign session token", zap.Error(err))
		return id
	}
	c.SetCookie(sessionCookie, token, int(ttl.Seconds()), "/", "", false, true)
	return id
}

// clearSession expires the session cookie and returns the session ID it
// carried, if any.
func clearSession(c *gin.Context) string {
	raw, err := c.Cookie(sessionCookie)
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	if err != nil || raw == "" {
		return ""
	}
	id, err := utils.SessionIDFromToken(raw)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(id)
}
