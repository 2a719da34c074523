package utils

import (
	"context"
	"fmt"
	"sync"
)

// RequestLog collects human-readable diagnostic steps for one request so the
// chat API can return them in its "logs" field. It complements zap, it does
// not replace it.
type RequestLog struct {
	mu      sync.Mutex
	entries []string
}

type reqLogKey struct{}

// NewRequestLog returns an empty request log and a context carrying it.
func NewRequestLog(ctx context.Context) (context.Context, *RequestLog) {
	rl := &RequestLog{}
	return context.WithValue(ctx, reqLogKey{}, rl), rl
}

// LogStep appends a formatted entry to the request log in ctx, if any.
func LogStep(ctx context.Context, format string, args ...interface{}) {
	rl, ok := ctx.Value(reqLogKey{}).(*RequestLog)
	if !ok {
		return
	}
	rl.mu.Lock()
	rl.entries = append(rl.entries, fmt.Sprintf(format, args...))
	rl.mu.Unlock()
}

// Entries returns a copy of the collected entries.
func (rl *RequestLog) Entries() []string {
	if rl == nil {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	out := make([]string, len(rl.entries))
	copy(out, rl.entries)
	return out
}
