package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestTableGridRowsMatchWidth(t *testing.T) {
	cols := []TableColumn{{Header: "Status", Width: 8}, {Header: "Title", Width: 20}}
	out := TableGrid(cols, [][]string{{"running", "summarise inbox"}, {"done", strings.Repeat("x", 60)}}, 50)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 4)
	for _, line := range lines {
		assert.Equal(t, 50, lipgloss.Width(line))
	}
	assert.Contains(t, lines[0], "Status")
}

func TestTableGridHeaderAndRule(t *testing.T) {
	cols := []TableColumn{{Header: "Name", Width: 10}}
	lines := strings.Split(TableGrid(cols, [][]string{{"Ada"}, {"[x] Bo"}}, 30), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Name")
	assert.Contains(t, lines[3], "[x]")
}

func TestCheckbox(t *testing.T) {
	assert.Equal(t, SelectedMark, Checkbox(true))
	assert.Equal(t, UnselectedMark, Checkbox(false))
}
