package app

import (
	"sync"
	"time"

	"github.com/dkeye/Attendance/internal/core"
	"github.com/dkeye/Attendance/internal/domain"
	"github.com/rs/zerolog/log"
)

type SessionOptions struct {
	QuorumThreshold float64
	RecentLimit     int
	Now             func() time.Time
}

// Session owns the attendee collection of the running assembly.
// All mutations go through the reducer in core.
type Session struct {
	roster      core.Roster
	threshold   float64
	recentLimit int
	now         func() time.Time

	mu        sync.RWMutex
	version   uint64
	startedAt time.Time
	records   []domain.AttendanceRecord
	stats     domain.SessionStats
	observers []func(core.Snapshot)
}

func NewSession(roster core.Roster, opts SessionOptions) *Session {
	if opts.QuorumThreshold <= 0 {
		opts.QuorumThreshold = core.DefaultQuorumThreshold
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Session{
		roster:      roster,
		threshold:   opts.QuorumThreshold,
		recentLimit: opts.RecentLimit,
		now:         opts.Now,
		version:     1,
	}
	s.records, s.stats = core.Reset(roster, s.threshold)
	s.startedAt = s.now()
	return s
}

// Subscribe registers fn to receive a snapshot after every change.
// fn runs under the session lock and must neither block nor call back
// into the session.
func (s *Session) Subscribe(fn func(core.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Session) CheckIn(id domain.CardID) (domain.AttendanceRecord, domain.SessionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := core.ApplyCheckIn(s.records, s.roster, id, s.now(), s.threshold)
	if err != nil {
		return domain.AttendanceRecord{}, s.stats, err
	}
	s.records = res.Records
	s.stats = res.Stats
	s.version++
	log.Info().Str("module", "app.session").
		Str("card", string(id)).
		Str("name", res.Record.Name).
		Int("present", s.stats.PresentCount).
		Bool("quorum", s.stats.QuorumReached).
		Msg("checked in")
	s.notifyLocked()
	return res.Record, res.Stats, nil
}

// Reset discards every record and starts a new session.
func (s *Session) Reset() domain.SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := len(s.records)
	s.records, s.stats = core.Reset(s.roster, s.threshold)
	s.startedAt = s.now()
	s.version++
	log.Warn().Str("module", "app.session").Int("dropped", dropped).Msg("session reset")
	s.notifyLocked()
	return s.stats
}

func (s *Session) Stats() domain.SessionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Session) Records() []domain.AttendanceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AttendanceRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Recent returns the last n check-ins, most recent first.
// n <= 0 uses the configured limit.
func (s *Session) Recent(n int) []domain.AttendanceRecord {
	if n <= 0 {
		n = s.recentLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.Recent(s.records, n)
}

func (s *Session) Roster() core.Roster { return s.roster }

func (s *Session) Snapshot() core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() core.Snapshot {
	out := make([]domain.AttendanceRecord, len(s.records))
	copy(out, s.records)
	return core.Snapshot{
		Version:   s.version,
		StartedAt: s.startedAt,
		Attendees: out,
		Recent:    core.Recent(s.records, s.recentLimit),
		Stats:     s.stats,
	}
}

func (s *Session) notifyLocked() {
	if len(s.observers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, fn := range s.observers {
		fn(snap)
	}
}
