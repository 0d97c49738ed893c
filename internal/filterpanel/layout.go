package filterpanel

import (
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/pders01/shelf/internal/facet"
)

type rowKind int

const (
	rowHeader rowKind = iota
	rowOption
	rowSlider
	rowEmpty
	rowReset
)

type row struct {
	kind   rowKind
	key    string
	option facet.Option
}

const (
	// chromeLines is the title line plus the blank line below it.
	chromeLines  = 2
	sliderIndent = 2
	minTrack     = 4
)

// rows flattens the visible sections in display order.
func (m *Model) rows() []row {
	var out []row
	if m.HasAppliedFilters() {
		out = append(out, row{kind: rowReset})
	}
	for _, f := range m.facets {
		out = append(out, row{kind: rowHeader, key: f.Key})
		if !m.expanded[f.Key] {
			continue
		}
		if f.EffectiveKind() == facet.Range {
			out = append(out, row{kind: rowSlider, key: f.Key})
			continue
		}
		if len(f.Options) == 0 {
			out = append(out, row{kind: rowEmpty, key: f.Key})
			continue
		}
		for _, o := range f.Options {
			out = append(out, row{kind: rowOption, key: f.Key, option: o})
		}
	}
	return out
}

func (m *Model) cursorRow() row {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return row{kind: rowEmpty}
	}
	return rows[m.cursor]
}

func (m *Model) headerIndex(key string) int {
	for i, r := range m.rows() {
		if r.kind == rowHeader && r.key == key {
			return i
		}
	}
	return 0
}

func (m *Model) clampCursor() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureCursorVisible()
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m *Model) bordered() bool { return !m.opts.Inline }

// origin is the screen position of the first content cell.
func (m *Model) origin() (int, int) {
	if m.bordered() {
		return m.offsetX + 2, m.offsetY + 1
	}
	return m.offsetX, m.offsetY
}

func (m *Model) contentWidth() int {
	w := m.opts.Width
	if m.bordered() {
		w -= 4
	}
	if w < 1 {
		w = 1
	}
	return w
}

// pinned is the number of lines above the row window that never scroll.
func (m *Model) pinned() int {
	if m.opts.Sticky {
		return m.opts.StickyTop + chromeLines
	}
	return 0
}

// lead is the number of scrolling lines before the first row.
func (m *Model) lead() int {
	if m.opts.Sticky {
		return 0
	}
	return chromeLines
}

// window is the number of scrolling lines that fit, or -1 if unbounded.
func (m *Model) window() int {
	if m.opts.Height <= 0 {
		return -1
	}
	h := m.opts.Height - m.pinned()
	if m.bordered() {
		h -= 2
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) maxScroll() int {
	w := m.window()
	if w < 0 {
		return 0
	}
	n := m.lead() + len(m.rows()) - w
	if n < 0 {
		return 0
	}
	return n
}

func (m *Model) scrollBy(delta int) {
	m.scroll += delta
	if m.scroll > m.maxScroll() {
		m.scroll = m.maxScroll()
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m *Model) ensureCursorVisible() {
	w := m.window()
	if w < 0 {
		m.scroll = 0
		return
	}
	line := m.lead() + m.cursor
	if line < m.scroll {
		m.scroll = line
	}
	if line >= m.scroll+w {
		m.scroll = line - w + 1
	}
	m.scrollBy(0)
}

// rowScreenY returns the screen line of row i, or false when it is
// scrolled out of view.
func (m *Model) rowScreenY(i int) (int, bool) {
	line := m.lead() + i - m.scroll
	if line < 0 {
		return 0, false
	}
	if w := m.window(); w >= 0 && line >= w {
		return 0, false
	}
	_, y := m.origin()
	return y + m.pinned() + line, true
}

// rowAt hit-tests a screen position against the visible rows.
func (m *Model) rowAt(x, y int) (int, bool) {
	ox, _ := m.origin()
	if x < ox-1 || x > ox+m.contentWidth() {
		return 0, false
	}
	for i := range m.rows() {
		if sy, ok := m.rowScreenY(i); ok && sy == y {
			return i, true
		}
	}
	return 0, false
}

// layoutSliders places every track in screen coordinates.
func (m *Model) layoutSliders() {
	ox, _ := m.origin()
	for _, s := range m.sliders {
		lo, hi := s.Bounds()
		reserve := runewidth.StringWidth(fmt.Sprintf("%d – %d", lo, hi)) + 1
		w := m.contentWidth() - sliderIndent - reserve
		if w < minTrack {
			w = minTrack
		}
		s.X = ox + sliderIndent
		s.Width = w
	}
}
