package app

import (
	"sync"

	"github.com/dkeye/Attendance/internal/domain"
	"github.com/rs/zerolog/log"
)

// StatusTracker holds the broker connection state for display.
// Nothing in the check-in path depends on it.
type StatusTracker struct {
	mu        sync.RWMutex
	status    domain.ConnStatus
	observers []func(domain.ConnStatus)
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{status: domain.StatusDisconnected}
}

func (t *StatusTracker) SetStatus(s domain.ConnStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == s {
		return
	}
	log.Info().Str("module", "app.status").Str("from", string(t.status)).Str("to", string(s)).Msg("broker status")
	t.status = s
	for _, fn := range t.observers {
		fn(s)
	}
}

func (t *StatusTracker) Status() domain.ConnStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *StatusTracker) Subscribe(fn func(domain.ConnStatus)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}
