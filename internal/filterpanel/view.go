package filterpanel

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/pders01/shelf/internal/facet"
)

// Styles controls how the drawer is drawn.
type Styles struct {
	Border  lipgloss.Style
	Title   lipgloss.Style
	Count   lipgloss.Style
	Header  lipgloss.Style
	Applied lipgloss.Style
	Option  lipgloss.Style
	Muted   lipgloss.Style
	Cursor  lipgloss.Style
	Reset   lipgloss.Style
}

// DefaultStyles matches the application palette.
func DefaultStyles() Styles {
	return Styles{
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(0, 1),
		Title:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		Count:   lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1D3")),
		Header:  lipgloss.NewStyle().Foreground(lipgloss.Color("#EAEAEA")).Bold(true),
		Applied: lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4")),
		Option:  lipgloss.NewStyle().Foreground(lipgloss.Color("#EAEAEA")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8")),
		Cursor:  lipgloss.NewStyle().Background(lipgloss.Color("#2A2F3A")),
		Reset:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	}
}

// View renders the drawer, or nothing while it is hidden.
func (m *Model) View() string {
	if !m.IsOpen() {
		return ""
	}
	width := m.contentWidth()
	rows := m.rows()

	var scrolling []string
	if !m.opts.Sticky {
		scrolling = append(scrolling, m.chrome()...)
	}
	for i, r := range rows {
		line := m.renderRow(r, width)
		if i == m.cursor {
			line = m.styles.Cursor.Render(line)
		}
		scrolling = append(scrolling, line)
	}
	if w := m.window(); w >= 0 {
		end := m.scroll + w
		if end > len(scrolling) {
			end = len(scrolling)
		}
		start := m.scroll
		if start > end {
			start = end
		}
		scrolling = scrolling[start:end]
	}

	var lines []string
	if m.opts.Sticky {
		for i := 0; i < m.opts.StickyTop; i++ {
			lines = append(lines, "")
		}
		lines = append(lines, m.chrome()...)
	}
	lines = append(lines, scrolling...)

	body := strings.Join(lines, "\n")
	if !m.bordered() {
		return lipgloss.NewStyle().Width(width).Render(body)
	}
	return m.styles.Border.Width(width + 2).Render(body)
}

func (m *Model) chrome() []string {
	title := m.styles.Title.Render(m.opts.Title)
	if n := facet.Count(m.selected); n > 0 {
		title += " " + m.styles.Count.Render(fmt.Sprintf("(%d)", n))
	}
	return []string{title, ""}
}

func (m *Model) renderRow(r row, width int) string {
	switch r.kind {
	case rowReset:
		return m.styles.Reset.Render(truncate("↺ reset filters", width))

	case rowHeader:
		f, _ := m.facet(r.key)
		arrow := "▸"
		if m.expanded[r.key] {
			arrow = "▾"
		}
		text := truncate(arrow+" "+f.DisplayLabel(), width-2)
		out := m.styles.Header.Render(text)
		if m.appliedFor(r.key) {
			out += " " + m.styles.Applied.Render("•")
		}
		return out

	case rowOption:
		f, _ := m.facet(r.key)
		var mark string
		if f.EffectiveKind() == facet.MinSelect {
			mark = "( )"
			if v, ok := facet.ToInt(r.option.Value); ok && facet.NumberOf(m.selected[r.key]).Is(v) {
				mark = "(•)"
			}
		} else {
			mark = "[ ]"
			if facet.SetOf(m.selected[r.key]).Has(r.option.Value) {
				mark = "[x]"
			}
		}
		count := ""
		if r.option.HasCount {
			count = fmt.Sprintf(" %d", r.option.Count)
		}
		label := truncate(r.option.DisplayLabel(), width-2-len(mark)-1-runewidth.StringWidth(count))
		return "  " + m.styles.Option.Render(mark+" "+label) + m.styles.Muted.Render(count)

	case rowSlider:
		s := m.sliders[r.key]
		if s == nil {
			return ""
		}
		return strings.Repeat(" ", sliderIndent) + s.View(m.cursorRow() == r)

	case rowEmpty:
		return "  " + m.styles.Muted.Render("no options")
	}
	return ""
}

func (m *Model) appliedFor(key string) bool {
	v, ok := m.selected[key]
	return ok && facet.HasApplied(facet.Selected{key: v})
}

func truncate(s string, width int) string {
	if width < 1 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}
