package app

import (
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Attendance/internal/core"
	"github.com/dkeye/Attendance/internal/domain"
)

var t0 = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func testRoster(t *testing.T) core.Roster {
	t.Helper()
	r, err := core.NewRoster([]domain.Member{
		{CardID: "BBBA3040", Name: "President Name", Role: "President"},
		{CardID: "98923040", Name: "Vice President Name", Role: "Vice President"},
		{CardID: "0F9A631E", Name: "Member One", Role: "Member"},
		{CardID: "EF26401D", Name: "Member Two", Role: "Member"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// steppingClock advances one second per call.
func steppingClock() func() time.Time {
	cur := t0
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(testRoster(t), SessionOptions{QuorumThreshold: 0.5, RecentLimit: 3, Now: steppingClock()})
}

func TestSessionCheckInAndStats(t *testing.T) {
	s := newTestSession(t)
	if st := s.Stats(); st.TotalRegistered != 4 || st.PresentCount != 0 {
		t.Fatalf("initial stats = %+v", st)
	}

	rec, st, err := s.CheckIn("BBBA3040")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "President Name" || st.PresentCount != 1 || st.QuorumReached {
		t.Fatalf("first check-in: %+v %+v", rec, st)
	}
	if _, st, err = s.CheckIn("98923040"); err != nil || !st.QuorumReached {
		t.Fatalf("second check-in: %+v %v", st, err)
	}

	_, st, err = s.CheckIn("BBBA3040")
	if !errors.Is(err, domain.ErrAlreadyCheckedIn) || st.PresentCount != 2 {
		t.Fatalf("duplicate: %+v %v", st, err)
	}
	_, _, err = s.CheckIn("00000000")
	if !errors.Is(err, domain.ErrUnknownCard) {
		t.Fatalf("unknown: %v", err)
	}
	if n := len(s.Records()); n != 2 {
		t.Fatalf("records = %d, want 2", n)
	}
}

func TestSessionRecentIsMostRecentFirst(t *testing.T) {
	s := newTestSession(t)
	for _, id := range []domain.CardID{"BBBA3040", "98923040", "0F9A631E", "EF26401D"} {
		if _, _, err := s.CheckIn(id); err != nil {
			t.Fatal(err)
		}
	}
	recent := s.Recent(0)
	if len(recent) != 3 || recent[0].CardID != "EF26401D" || recent[2].CardID != "98923040" {
		t.Fatalf("recent = %+v", recent)
	}
	if !recent[0].CheckedInAt.After(recent[1].CheckedInAt) {
		t.Fatal("recent not ordered by time")
	}
}

func TestSessionResetNotifiesObservers(t *testing.T) {
	s := newTestSession(t)
	var got []core.Snapshot
	s.Subscribe(func(snap core.Snapshot) { got = append(got, snap) })

	s.CheckIn("BBBA3040")
	s.CheckIn("98923040")
	s.CheckIn("DEADBEEF")
	st := s.Reset()

	if st.PresentCount != 0 || st.QuorumReached {
		t.Fatalf("reset stats = %+v", st)
	}
	if len(got) != 3 {
		t.Fatalf("notifications = %d, want 3 (two check-ins and a reset)", len(got))
	}
	if len(got[1].Attendees) != 2 || len(got[2].Attendees) != 0 {
		t.Fatalf("snapshots = %+v", got)
	}
	if !got[2].StartedAt.After(got[0].StartedAt) {
		t.Fatal("reset should start a new session")
	}
}

func TestSessionRecordsIsACopy(t *testing.T) {
	s := newTestSession(t)
	s.CheckIn("BBBA3040")
	recs := s.Records()
	recs[0].Name = "tampered"
	if s.Records()[0].Name != "President Name" {
		t.Fatal("Records leaked internal state")
	}
}

func TestStatusTracker(t *testing.T) {
	tr := NewStatusTracker()
	var seen []domain.ConnStatus
	tr.Subscribe(func(s domain.ConnStatus) { seen = append(seen, s) })

	tr.SetStatus(domain.StatusConnected)
	tr.SetStatus(domain.StatusConnected)
	tr.SetStatus(domain.StatusError)

	if tr.Status() != domain.StatusError {
		t.Fatalf("status = %s", tr.Status())
	}
	if len(seen) != 2 {
		t.Fatalf("observer calls = %v, want 2 distinct changes", seen)
	}
}

func TestScanLimiter(t *testing.T) {
	l := NewScanLimiter(2, 10*time.Second)
	now := t0
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two should pass")
	}
	if l.Allow("a") {
		t.Fatal("third within window should be blocked")
	}
	if !l.Allow("b") {
		t.Fatal("keys are independent")
	}
	now = now.Add(11 * time.Second)
	if !l.Allow("a") {
		t.Fatal("window should have slid")
	}
}

func TestScanLimiterEvictsIdleKeys(t *testing.T) {
	l := NewScanLimiter(2, 10*time.Second)
	now := t0
	l.now = func() time.Time { return now }

	for _, key := range []string{"a", "b", "c"} {
		l.Allow(key)
	}
	if n := l.trackedKeys(); n != 3 {
		t.Fatalf("tracked = %d, want 3", n)
	}

	now = now.Add(11 * time.Second)
	if !l.Allow("d") {
		t.Fatal("fresh key should pass")
	}
	if n := l.trackedKeys(); n != 1 {
		t.Fatalf("tracked = %d after window passed, want only the new key", n)
	}
}

func TestSessionSnapshotVersionGrows(t *testing.T) {
	s := newTestSession(t)
	v0 := s.Snapshot().Version
	if v0 == 0 {
		t.Fatal("initial version should be non-zero")
	}
	s.CheckIn("BBBA3040")
	v1 := s.Snapshot().Version
	s.CheckIn("BBBA3040")
	if s.Snapshot().Version != v1 {
		t.Fatal("rejected check-in changed the version")
	}
	s.Reset()
	v2 := s.Snapshot().Version
	if !(v0 < v1 && v1 < v2) {
		t.Fatalf("versions %d %d %d should grow", v0, v1, v2)
	}
}
