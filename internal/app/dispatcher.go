package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Attendance/internal/core"
	"github.com/dkeye/Attendance/internal/domain"
	"github.com/rs/zerolog/log"
)

// Dispatcher is the single consumer of broker events. One event is fully
// processed before the next is read.
type Dispatcher struct {
	Session *Session
	Acks    core.Acknowledger
	Now     func() time.Time
}

func (d *Dispatcher) Run(ctx context.Context, events <-chan core.CardEvent) {
	log.Info().Str("module", "app.dispatcher").Msg("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.dispatcher").Msg("dispatcher ctx done")
			return
		case ev, ok := <-events:
			if !ok {
				log.Info().Str("module", "app.dispatcher").Msg("event channel closed")
				return
			}
			_ = d.Handle(ev)
		}
	}
}

// Handle applies one event and acknowledges the outcome.
func (d *Dispatcher) Handle(ev core.CardEvent) error {
	rec, _, err := d.Session.CheckIn(ev.CardID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUnknownCard), errors.Is(err, domain.ErrAlreadyCheckedIn):
		log.Warn().Str("module", "app.dispatcher").Str("card", string(ev.CardID)).Err(err).Msg("check-in rejected")
	default:
		log.Error().Str("module", "app.dispatcher").Str("card", string(ev.CardID)).Err(err).Msg("check-in failed")
		return err
	}
	if d.Acks != nil {
		d.Acks.Acknowledge(BuildAck(rec, err, d.now()))
	}
	return err
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// BuildAck turns a check-in outcome into the reader-facing acknowledgement.
func BuildAck(rec domain.AttendanceRecord, err error, now time.Time) domain.Ack {
	return domain.Ack{
		Success:   err == nil,
		Message:   OutcomeMessage(rec, err),
		Timestamp: now.UTC(),
	}
}

func OutcomeMessage(rec domain.AttendanceRecord, err error) string {
	if err == nil {
		return fmt.Sprintf("Welcome, %s", rec.Name)
	}
	var ce *domain.CheckInError
	if !errors.As(err, &ce) {
		return "Invalid card event"
	}
	switch {
	case errors.Is(err, domain.ErrAlreadyCheckedIn) && ce.Member != nil:
		return fmt.Sprintf("%s already checked in", ce.Member.Name)
	case errors.Is(err, domain.ErrAlreadyCheckedIn):
		return fmt.Sprintf("Card %s already checked in", ce.CardID)
	default:
		return fmt.Sprintf("Unknown card %s", ce.CardID)
	}
}
