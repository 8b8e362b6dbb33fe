package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCard      = errors.New("unknown card")
	ErrAlreadyCheckedIn = errors.New("already checked in")
	ErrMalformedEvent   = errors.New("malformed event")
)

// CheckInError is a rejected check-in. Member is set when the card is known.
type CheckInError struct {
	Err    error
	CardID CardID
	Member *Member
}

func (e *CheckInError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.CardID)
}

func (e *CheckInError) Unwrap() error { return e.Err }
