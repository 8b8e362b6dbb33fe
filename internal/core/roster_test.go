package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dkeye/Attendance/internal/domain"
)

func TestNewRosterNormalizesCards(t *testing.T) {
	r, err := NewRoster([]domain.Member{{CardID: " ef26401d ", Name: "Member Two", Role: "Member"}})
	if err != nil {
		t.Fatal(err)
	}
	m, ok := r.Lookup("EF26401D")
	if !ok || m.Name != "Member Two" {
		t.Fatalf("lookup = %+v, %v", m, ok)
	}
	if _, ok := r.Lookup("ef26401d"); ok {
		t.Fatal("lookup expects normalized ids")
	}
}

func TestNewRosterRejectsDuplicates(t *testing.T) {
	_, err := NewRoster([]domain.Member{
		{CardID: "BBBA3040", Name: "A"},
		{CardID: "bbba3040", Name: "B"},
	})
	if !errors.Is(err, ErrDuplicateCard) {
		t.Fatalf("err = %v, want ErrDuplicateCard", err)
	}
}

func TestNewRosterValidates(t *testing.T) {
	tests := []struct {
		name string
		m    domain.Member
	}{
		{"missing card", domain.Member{Name: "Nobody"}},
		{"missing name", domain.Member{CardID: "BBBA3040"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRoster([]domain.Member{tt.m}); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestRosterMembersIsACopy(t *testing.T) {
	r := fourMemberRoster(t)
	ms := r.Members()
	ms[0].Name = "changed"
	if r.Members()[0].Name != "President Name" {
		t.Fatal("Members leaked internal slice")
	}
	if r.Size() != 4 {
		t.Fatalf("size = %d", r.Size())
	}
}

func TestLoadRosterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	doc := "members:\n  - card_id: BBBA3040\n    name: President Name\n    role: President\n  - card_id: \"98923040\"\n    name: Vice President Name\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	ms, err := LoadRosterFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 || ms[1].CardID != "98923040" || ms[0].Role != "President" {
		t.Fatalf("members = %+v", ms)
	}
	if _, err := LoadRosterFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
