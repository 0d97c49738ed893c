package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// renderHeader returns a consistently styled header with an optional muted subtitle.
func renderHeader(title, subtitle string, width int) string {
	title = truncateEnd(title, width-2)
	subtitle = truncateEnd(subtitle, width-2)
	rows := []string{HeaderStyle.Render(title)}
	if subtitle != "" {
		rows = append(rows, renderMuted(subtitle))
	}
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

// renderInputFrame draws a rounded bordered container around a rendered input view.
func renderInputFrame(inputView string, focused bool, contentWidth int) string {
	borderColor := MutedColor
	if focused {
		borderColor = AccentColor
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(contentWidth + 4).
		Render(inputView)
}

// renderCentered centers the provided content within the given width/height box.
func renderCentered(width, height int, content string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func renderMuted(text string) string {
	return lipgloss.NewStyle().Foreground(MutedColor).Render(text)
}

func renderHelp(text string) string {
	return HelpStyle.Render(text)
}

// overlay draws top over base with its left edge at column x and its
// first line at row y. Base lines are cut at x, so anything right of the
// overlay's column range is hidden.
func overlay(base, top string, x, y int) string {
	lines := strings.Split(base, "\n")
	for i, line := range strings.Split(top, "\n") {
		row := y + i
		for row >= len(lines) {
			lines = append(lines, "")
		}
		left := ansi.Truncate(lines[row], x, "") + ansi.ResetStyle
		if w := lipgloss.Width(left); w < x {
			left += strings.Repeat(" ", x-w)
		}
		lines[row] = left + line
	}
	return strings.Join(lines, "\n")
}
