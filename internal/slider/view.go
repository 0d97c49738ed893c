package slider

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles controls how the track is drawn.
type Styles struct {
	Rail          lipgloss.Style
	Fill          lipgloss.Style
	Handle        lipgloss.Style
	FocusedHandle lipgloss.Style
	ActiveHandle  lipgloss.Style
	Label         lipgloss.Style
}

// DefaultStyles matches the application palette.
func DefaultStyles() Styles {
	return Styles{
		Rail:          lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8")),
		Fill:          lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4")),
		Handle:        lipgloss.NewStyle().Foreground(lipgloss.Color("#EAEAEA")),
		FocusedHandle: lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1D3")).Bold(true),
		ActiveHandle:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		Label:         lipgloss.NewStyle().Foreground(lipgloss.Color("#EAEAEA")),
	}
}

const (
	railGlyph   = "─"
	fillGlyph   = "━"
	handleGlyph = "●"
)

// View renders the track followed by the numeric range. focused marks
// the row as holding keyboard focus.
func (m *Model) View(focused bool) string {
	width := m.Width
	if width < 2 {
		width = 2
	}
	loCol := m.ColumnOf(m.lo) - m.X
	hiCol := m.ColumnOf(m.hi) - m.X

	var b strings.Builder
	for c := 0; c < width; c++ {
		switch {
		case c == loCol:
			b.WriteString(m.handleStyle(MinHandle, focused).Render(handleGlyph))
		case c == hiCol:
			b.WriteString(m.handleStyle(MaxHandle, focused).Render(handleGlyph))
		case c > loCol && c < hiCol:
			b.WriteString(m.Styles.Fill.Render(fillGlyph))
		default:
			b.WriteString(m.Styles.Rail.Render(railGlyph))
		}
	}
	return b.String() + " " + m.Styles.Label.Render(m.Label())
}

// Label is the textual form of the current range.
func (m *Model) Label() string {
	if m.lo == m.hi {
		return fmt.Sprintf("%d", m.lo)
	}
	return fmt.Sprintf("%d – %d", m.lo, m.hi)
}

func (m *Model) handleStyle(h Handle, focused bool) lipgloss.Style {
	switch {
	case m.active == h:
		return m.Styles.ActiveHandle
	case focused && m.focus == h:
		return m.Styles.FocusedHandle
	default:
		return m.Styles.Handle
	}
}
