package core

import (
	"time"

	"github.com/dkeye/Attendance/internal/domain"
)

// Snapshot is a read-only view of a session for renderers. Version grows
// with every change, so a later snapshot always has a larger Version.
type Snapshot struct {
	Version   uint64                    `json:"version"`
	StartedAt time.Time                 `json:"startedAt"`
	Attendees []domain.AttendanceRecord `json:"attendees"`
	Recent    []domain.AttendanceRecord `json:"recent"`
	Stats     domain.SessionStats       `json:"stats"`
}

// CardEvent is a decoded inbound scan.
type CardEvent struct {
	CardID     domain.CardID
	Topic      string
	ReceivedAt time.Time
}

// Acknowledger sends a check-in acknowledgement back towards the reader.
// Implementations must not block.
type Acknowledger interface {
	Acknowledge(ack domain.Ack)
}

// StatusSink receives broker connection state changes.
type StatusSink interface {
	SetStatus(s domain.ConnStatus)
}
