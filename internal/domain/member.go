// Package domain contains entities without logic, just meta-data
package domain

import "strings"

type CardID string

// Member is a roster entry. Immutable after the roster is loaded.
type Member struct {
	CardID CardID `json:"cardId" mapstructure:"card_id" yaml:"card_id" validate:"required,max=64"`
	Name   string `json:"name" mapstructure:"name" yaml:"name" validate:"required,max=128"`
	Role   string `json:"role" mapstructure:"role" yaml:"role" validate:"max=64"`
}

// NormalizeCardID trims and upper-cases a raw card token so roster keys
// and scanned ids compare equal regardless of reader formatting.
func NormalizeCardID(raw string) CardID {
	return CardID(strings.ToUpper(strings.TrimSpace(raw)))
}
