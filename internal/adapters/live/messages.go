package live

import (
	"github.com/dkeye/Attendance/internal/core"
	"github.com/dkeye/Attendance/internal/domain"
)

const (
	TypeSnapshot = "snapshot"
	TypeStatus   = "status"
	TypePong     = "pong"
	TypeError    = "error"

	TypePing    = "ping"
	TypeRefresh = "refresh"
)

type SnapshotMessage struct {
	Type string `json:"type"`
	core.Snapshot
}

type StatusMessage struct {
	Type   string            `json:"type"`
	Status domain.ConnStatus `json:"status"`
}

type envelope struct {
	Type string `json:"type"`
}
