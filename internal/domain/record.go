package domain

import "time"

type Status string

const StatusPresent Status = "present"

// AttendanceRecord is created once per card per session and never mutated.
type AttendanceRecord struct {
	ID          int       `json:"id"`
	CardID      CardID    `json:"cardId"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	CheckedInAt time.Time `json:"checkedInAt"`
	Status      Status    `json:"status"`
}

// SessionStats is derived from roster size and record count, never stored on its own.
type SessionStats struct {
	TotalRegistered  int     `json:"totalRegistered"`
	PresentCount     int     `json:"presentCount"`
	QuorumRequired   int     `json:"quorumRequired"`
	QuorumReached    bool    `json:"quorumReached"`
	QuorumPercentage float64 `json:"quorumPercentage"`
}

// Ack is the optional acknowledgement published back to the reader.
type Ack struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
