package core

import (
	"math"
	"time"

	"github.com/dkeye/Attendance/internal/domain"
)

const DefaultQuorumThreshold = 0.5

// CheckInResult is the new state after a successful check-in.
type CheckInResult struct {
	Records []domain.AttendanceRecord
	Record  domain.AttendanceRecord
	Stats   domain.SessionStats
}

// ApplyCheckIn is the check-in reducer. Rejections leave the input
// untouched. On success Records is a fresh slice that never shares the
// input's backing array.
func ApplyCheckIn(
	records []domain.AttendanceRecord,
	roster Roster,
	id domain.CardID,
	now time.Time,
	threshold float64,
) (CheckInResult, error) {
	if id == "" {
		return CheckInResult{}, domain.ErrMalformedEvent
	}
	member, ok := roster.Lookup(id)
	if !ok {
		return CheckInResult{}, &domain.CheckInError{Err: domain.ErrUnknownCard, CardID: id}
	}
	for _, r := range records {
		if r.CardID == id {
			return CheckInResult{}, &domain.CheckInError{Err: domain.ErrAlreadyCheckedIn, CardID: id, Member: &member}
		}
	}

	rec := domain.AttendanceRecord{
		ID:          len(records) + 1,
		CardID:      id,
		Name:        member.Name,
		Role:        member.Role,
		CheckedInAt: now,
		Status:      domain.StatusPresent,
	}
	next := make([]domain.AttendanceRecord, len(records), len(records)+1)
	copy(next, records)
	next = append(next, rec)

	return CheckInResult{
		Records: next,
		Record:  rec,
		Stats:   ComputeStats(roster.Size(), len(next), threshold),
	}, nil
}

// ComputeStats derives quorum figures. An empty roster never reaches quorum.
func ComputeStats(total, present int, threshold float64) domain.SessionStats {
	st := domain.SessionStats{
		TotalRegistered: total,
		PresentCount:    present,
	}
	if total <= 0 {
		return st
	}
	st.QuorumRequired = int(math.Ceil(float64(total) * threshold))
	st.QuorumPercentage = 100 * float64(present) / float64(total)
	st.QuorumReached = present >= st.QuorumRequired
	return st
}

// Reset returns the empty collection and its stats.
func Reset(roster Roster, threshold float64) ([]domain.AttendanceRecord, domain.SessionStats) {
	return []domain.AttendanceRecord{}, ComputeStats(roster.Size(), 0, threshold)
}

// Recent returns up to n records, most recent first.
func Recent(records []domain.AttendanceRecord, n int) []domain.AttendanceRecord {
	if n > len(records) {
		n = len(records)
	}
	if n <= 0 {
		return []domain.AttendanceRecord{}
	}
	out := make([]domain.AttendanceRecord, 0, n)
	for i := len(records) - 1; i >= len(records)-n; i-- {
		out = append(out, records[i])
	}
	return out
}
