package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/gravitrone/concierge/internal/api"
)

// --- Theme Colors ---

var (
	ColorPrimary    = lipgloss.Color("#7f57b4") // purple
	ColorSecondary  = lipgloss.Color("#436b77") // teal
	ColorAccent     = lipgloss.Color("#a7754e") // warm
	ColorBackground = lipgloss.Color("#16161d") // dark
	ColorText       = lipgloss.Color("#d7d9da") // main text
	ColorMuted      = lipgloss.Color("#9ba0bf") // muted text
	ColorSuccess    = lipgloss.Color("#3f866b") // green
	ColorError      = lipgloss.Color("#e06c75") // red
	ColorWarning    = lipgloss.Color("#c78854") // warning
	ColorBorder     = lipgloss.Color("#273540") // border
	ColorBlue       = lipgloss.Color("#5f8fd0") // running
)

// --- Reusable Styles ---

var (
	BannerStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	TabActiveStyle = lipgloss.NewStyle().
			Foreground(ColorBackground).
			Background(ColorPrimary).
			Bold(true).
			Padding(0, 1)

	TabInactiveStyle = lipgloss.NewStyle().
				Foreground(ColorMuted).
				Padding(0, 1)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	NormalStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	AccentStyle = lipgloss.NewStyle().
			Foreground(ColorAccent)

	BlueStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	GroupHeaderStyle = lipgloss.NewStyle().
				Foreground(ColorSecondary).
				Bold(true)
)

// taskStatusStyle colours a task status word.
func taskStatusStyle(status api.TaskStatus) lipgloss.Style {
	switch status {
	case api.TaskRunning:
		return BlueStyle
	case api.TaskDone:
		return SuccessStyle
	case api.TaskFailed:
		return ErrorStyle
	case api.TaskCancelled:
		return WarningStyle
	default:
		return MutedStyle
	}
}

// inboxStatusStyle colours an inbox triage status.
func inboxStatusStyle(status api.InboxStatus) lipgloss.Style {
	switch status {
	case api.InboxSaved:
		return SuccessStyle
	case api.InboxExecuted:
		return BlueStyle
	case api.InboxDismissed:
		return MutedStyle
	default:
		return AccentStyle
	}
}

// toastColor maps a toast level to a table value colour.
func toastColor(level string) string {
	switch level {
	case toastSuccess:
		return string(ColorSuccess)
	case toastWarning:
		return string(ColorWarning)
	case toastError:
		return string(ColorError)
	}
	return string(ColorText)
}
