// Package view renders the three dashboard views as terminal text.
package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dkeye/Attendance/internal/core"
	"github.com/dkeye/Attendance/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	cardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(22)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1)
)

const timeLayout = "15:04:05"

// Stats renders the three stat cards side by side.
func Stats(st domain.SessionStats) string {
	quorum := errStyle.Render("not reached")
	if st.QuorumReached {
		quorum = okStyle.Render("reached")
	}
	cards := []string{
		card("Registered", fmt.Sprintf("%d", st.TotalRegistered)),
		card("Present", fmt.Sprintf("%d", st.PresentCount)),
		card("Quorum", fmt.Sprintf("%.1f%% (%d needed)\n%s", st.QuorumPercentage, st.QuorumRequired, quorum)),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func card(title, body string) string {
	return cardStyle.Render(titleStyle.Render(title) + "\n" + body)
}

// Recent renders the activity feed; records are expected most recent first.
func Recent(records []domain.AttendanceRecord) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Recent activity"))
	if len(records) == 0 {
		b.WriteString("\n" + mutedStyle.Render("no check-ins yet"))
	}
	for _, r := range records {
		fmt.Fprintf(&b, "\n%s  %s %s", r.CheckedInAt.Local().Format(timeLayout), r.Name, mutedStyle.Render("("+r.Role+")"))
	}
	return panelStyle.Render(b.String())
}

// List renders the full attendance list in arrival order.
func List(records []domain.AttendanceRecord) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Attendance"))
	if len(records) == 0 {
		b.WriteString("\n" + mutedStyle.Render("empty"))
	}
	for _, r := range records {
		fmt.Fprintf(&b, "\n%3d  %-24s %-16s %-10s %s",
			r.ID, r.Name, r.Role, r.CardID, r.CheckedInAt.Local().Format(timeLayout))
	}
	return panelStyle.Render(b.String())
}

func Status(s domain.ConnStatus) string {
	label := "MQTT: " + string(s)
	switch s {
	case domain.StatusConnected:
		return okStyle.Render(label)
	case domain.StatusError:
		return errStyle.Render(label)
	default:
		return warnStyle.Render(label)
	}
}

// Dashboard composes header, stat cards, recent activity and the list.
func Dashboard(snap core.Snapshot, status domain.ConnStatus, now time.Time) string {
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("Assembly Attendance System"),
		"   ",
		mutedStyle.Render(now.Format("Mon 2 Jan 2006 15:04")),
		"   ",
		Status(status),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		Stats(snap.Stats),
		Recent(snap.Recent),
		List(snap.Attendees),
	)
}
