package core

import (
	"errors"
	"fmt"
	"os"

	"github.com/dkeye/Attendance/internal/domain"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var ErrDuplicateCard = errors.New("duplicate card in roster")

// Roster is the read-only set of members eligible to check in.
type Roster interface {
	Lookup(id domain.CardID) (domain.Member, bool)
	Size() int
	Members() []domain.Member
}

type staticRoster struct {
	order  []domain.Member
	byCard map[domain.CardID]domain.Member
}

// NewRoster validates and indexes members. Card ids are normalized;
// two entries normalizing to the same id are rejected.
func NewRoster(members []domain.Member) (Roster, error) {
	v := validator.New()
	r := &staticRoster{
		order:  make([]domain.Member, 0, len(members)),
		byCard: make(map[domain.CardID]domain.Member, len(members)),
	}
	for i, m := range members {
		m.CardID = domain.NormalizeCardID(string(m.CardID))
		if err := v.Struct(m); err != nil {
			return nil, fmt.Errorf("roster entry %d: %w", i, err)
		}
		if _, ok := r.byCard[m.CardID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCard, m.CardID)
		}
		r.byCard[m.CardID] = m
		r.order = append(r.order, m)
	}
	return r, nil
}

func (r *staticRoster) Lookup(id domain.CardID) (domain.Member, bool) {
	m, ok := r.byCard[id]
	return m, ok
}

func (r *staticRoster) Size() int { return len(r.order) }

func (r *staticRoster) Members() []domain.Member {
	out := make([]domain.Member, len(r.order))
	copy(out, r.order)
	return out
}

type rosterFile struct {
	Members []domain.Member `yaml:"members"`
}

// LoadRosterFile reads a YAML document of the form
//
//	members:
//	  - card_id: BBBA3040
//	    name: President Name
//	    role: President
func LoadRosterFile(path string) ([]domain.Member, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var f rosterFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}
	return f.Members, nil
}
