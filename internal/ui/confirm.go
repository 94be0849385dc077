package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gravitrone/concierge/internal/ui/components"
)

// pendingConfirm gates a destructive command behind a y/n dialog. preview,
// when set, replaces the plain dialog body.
type pendingConfirm struct {
	title   string
	message string
	preview string
	run     tea.Cmd
}

// handleConfirmKey resolves a pending confirmation. It returns the command
// to dispatch on "y" and whether the dialog closed.
func handleConfirmKey(c *pendingConfirm, msg tea.KeyMsg) (closed bool, cmd tea.Cmd) {
	switch {
	case isConfirm(msg):
		return true, c.run
	case isCancel(msg):
		return true, nil
	}
	return false, nil
}

func (c *pendingConfirm) view() string {
	if c.preview != "" {
		return components.Indent(c.preview, 1)
	}
	return components.Indent(components.ConfirmDialog(c.title, c.message), 1)
}

func confirmHints() []string {
	return []string{
		components.Hint("y", "Confirm"),
		components.Hint("n", "Cancel"),
	}
}
