package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const bannerArt = `
 ┏━╸┏━┓┏┓╻┏━╸╻┏━╸┏━┓┏━╸┏━╸
 ┃  ┃ ┃┃┗┫┃  ┃┣╸ ┣┳┛┃╺┓┣╸
 ┗━╸┗━┛╹ ╹┗━╸╹┗━╸╹┗╸┗━┛┗━╸`

const bannerSubtitle = "Personal Assistant Dashboard"

// RenderBanner returns the wordmark with a centred subtitle underneath.
// Terminals shorter than compactHeight get the one-line form.
func RenderBanner(height int) string {
	if height > 0 && height < compactHeight {
		return BannerStyle.Render("concierge") + MutedStyle.Render(" · "+bannerSubtitle)
	}

	lines := strings.Split(strings.TrimPrefix(bannerArt, "\n"), "\n")
	blockWidth := lipgloss.Width(bannerSubtitle)
	for _, line := range lines {
		blockWidth = max(blockWidth, lipgloss.Width(line))
	}

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(BannerStyle.Render(line))
		b.WriteString("\n")
	}
	subtitle := lipgloss.NewStyle().
		Foreground(ColorMuted).
		Width(blockWidth).
		Align(lipgloss.Center).
		Render(bannerSubtitle)
	return b.String() + subtitle
}

// compactHeight is the terminal height below which the banner collapses.
const compactHeight = 32
