package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// sideBySideMinWidth is the content width from which master and detail
// panes render next to each other. Below it the detail is an overlay.
const sideBySideMinWidth = 110

// --- Notifications ---

const (
	toastInfo    = "info"
	toastSuccess = "success"
	toastWarning = "warning"
	toastError   = "error"
)

// notifyMsg asks the app to show a toast.
type notifyMsg struct {
	level string
	text  string
}

func notify(level, text string) tea.Cmd {
	return func() tea.Msg { return notifyMsg{level: level, text: text} }
}

func notifyErr(action string, err error) tea.Cmd {
	return notify(toastError, fmt.Sprintf("%s failed: %v", action, err))
}

// --- Layout ---

// splitPanes returns master and detail widths for a content width, or
// ok=false when the detail should cover the master list.
func splitPanes(width int) (master, detail int, ok bool) {
	if width < sideBySideMinWidth {
		return width, width, false
	}
	master = width * 45 / 100
	return master, width - master - 1, true
}

// joinPanes renders two panes next to each other.
func joinPanes(left, right string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

// --- Time ---

// relativeTime renders t relative to now, like "5m ago".
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < 0:
		return t.Local().Format("Jan 2 15:04")
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("Jan 2")
	}
}

// shortDuration renders d like "1h02m", "3m05s" or "42s".
func shortDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func clockTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("Jan 2 15:04:05")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
