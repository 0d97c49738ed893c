// Package slider implements a two-handle integer range control for the
// terminal. Both handles share one track; they can meet but never cross.
package slider

import (
	"math"

	"github.com/pders01/shelf/internal/facet"
)

// Handle identifies one end of the range.
type Handle int

const (
	None Handle = iota
	MinHandle
	MaxHandle
)

func (h Handle) String() string {
	switch h {
	case MinHandle:
		return "min"
	case MaxHandle:
		return "max"
	default:
		return "none"
	}
}

// Other returns the opposite handle.
func (h Handle) Other() Handle {
	switch h {
	case MinHandle:
		return MaxHandle
	case MaxHandle:
		return MinHandle
	default:
		return None
	}
}

// DefaultWidth is the track width used until a layout assigns one.
const DefaultWidth = 24

// Model is a dual range slider over [FacetMin, FacetMax] with step 1.
// X and Width describe where the track is drawn, in the coordinate space
// of whoever forwards pointer positions.
type Model struct {
	facetMin int
	facetMax int
	lo       int
	hi       int
	active   Handle
	focus    Handle

	X      int
	Width  int
	Styles Styles
}

// New returns a slider spanning the full facet range.
func New(facetMin, facetMax int) *Model {
	if facetMin > facetMax {
		facetMin, facetMax = facetMax, facetMin
	}
	return &Model{
		facetMin: facetMin,
		facetMax: facetMax,
		lo:       facetMin,
		hi:       facetMax,
		focus:    MinHandle,
		Width:    DefaultWidth,
		Styles:   DefaultStyles(),
	}
}

// Bounds returns the facet bounds.
func (m *Model) Bounds() (int, int) { return m.facetMin, m.facetMax }

// Value returns the current pending range.
func (m *Model) Value() (int, int) { return m.lo, m.hi }

// Active returns the handle being dragged, if any.
func (m *Model) Active() Handle { return m.active }

// Dragging reports whether a gesture is in progress.
func (m *Model) Dragging() bool { return m.active != None }

// Focus returns the handle receiving keyboard steps.
func (m *Model) Focus() Handle { return m.focus }

// SetFocus selects the handle receiving keyboard steps.
func (m *Model) SetFocus(h Handle) {
	if h == MinHandle || h == MaxHandle {
		m.focus = h
	}
}

// SwitchFocus moves keyboard focus to the other handle.
func (m *Model) SwitchFocus() { m.focus = m.focus.Other() }

// Degenerate reports whether the facet range is a single point, in which
// case every gesture is a no-op.
func (m *Model) Degenerate() bool { return m.facetMin == m.facetMax }

// SetBounds replaces the facet bounds and re-clamps the handles.
func (m *Model) SetBounds(facetMin, facetMax int) {
	if facetMin > facetMax {
		facetMin, facetMax = facetMax, facetMin
	}
	m.facetMin, m.facetMax = facetMin, facetMax
	m.SetValue(m.lo, m.hi)
}

// SetValue overwrites both handles, clamping into the facet bounds. Used
// when the owner's value changes underneath the slider.
func (m *Model) SetValue(lo, hi int) {
	m.lo, m.hi = facet.ClampRange(facet.NewRange(lo, hi), m.facetMin, m.facetMax)
}

// Set moves one handle to v, clamped against the facet bounds and the
// other handle. It reports whether the value changed.
func (m *Model) Set(h Handle, v int) bool {
	if m.Degenerate() {
		return false
	}
	v = facet.Clamp(v, m.facetMin, m.facetMax)
	switch h {
	case MinHandle:
		if v > m.hi {
			v = m.hi
		}
		if v == m.lo {
			return false
		}
		m.lo = v
	case MaxHandle:
		if v < m.lo {
			v = m.lo
		}
		if v == m.hi {
			return false
		}
		m.hi = v
	default:
		return false
	}
	return true
}

// ValueAt maps a pointer column to a facet value by linear interpolation
// over the track, rounded to the nearest integer. Columns outside the
// track clamp to the bounds.
func (m *Model) ValueAt(x int) int {
	span := m.facetMax - m.facetMin
	if span == 0 || m.Width <= 1 {
		return m.facetMin
	}
	ratio := float64(x-m.X) / float64(m.Width-1)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return m.facetMin + int(math.Round(ratio*float64(span)))
}

// ColumnOf maps a facet value to its track column.
func (m *Model) ColumnOf(v int) int {
	span := m.facetMax - m.facetMin
	if span == 0 || m.Width <= 1 {
		return m.X
	}
	ratio := float64(v-m.facetMin) / float64(span)
	return m.X + int(math.Round(ratio*float64(m.Width-1)))
}

// Nearest picks the handle closest to v; equal distances go to the min
// handle. When both handles sit on the same value the side of v decides,
// otherwise the max handle could never leave the min handle.
func (m *Model) Nearest(v int) Handle {
	if m.lo == m.hi {
		if v > m.hi {
			return MaxHandle
		}
		return MinHandle
	}
	dMin := abs(v - m.lo)
	dMax := abs(v - m.hi)
	if dMax < dMin {
		return MaxHandle
	}
	return MinHandle
}

// HandleAt returns the handle drawn at column x, or None.
func (m *Model) HandleAt(x int) Handle {
	loCol, hiCol := m.ColumnOf(m.lo), m.ColumnOf(m.hi)
	switch {
	case loCol == hiCol && x == loCol:
		return m.focus
	case x == loCol:
		return MinHandle
	case x == hiCol:
		return MaxHandle
	default:
		return None
	}
}

// PressTrack starts a gesture from a click on the track: the nearer
// handle becomes active and jumps to the clicked value.
func (m *Model) PressTrack(x int) bool {
	if m.Degenerate() {
		return false
	}
	v := m.ValueAt(x)
	h := m.Nearest(v)
	m.active = h
	m.focus = h
	return m.Set(h, v)
}

// PressHandle starts a gesture on a specific handle. A direct hit on a
// handle never goes through the nearest-handle rule.
func (m *Model) PressHandle(h Handle, x int) bool {
	if m.Degenerate() || h == None {
		return false
	}
	m.active = h
	m.focus = h
	return m.Set(h, m.ValueAt(x))
}

// Press dispatches a pointer press at column x to PressHandle when it
// lands on a handle glyph and to PressTrack otherwise.
func (m *Model) Press(x int) bool {
	if h := m.HandleAt(x); h != None {
		return m.PressHandle(h, x)
	}
	return m.PressTrack(x)
}

// Drag moves the active handle to the value under x.
func (m *Model) Drag(x int) bool {
	if m.active == None {
		return false
	}
	return m.Set(m.active, m.ValueAt(x))
}

// Release ends the gesture. The last computed value stands.
func (m *Model) Release() {
	m.active = None
}

// Step nudges the focused handle by delta.
func (m *Model) Step(delta int) bool {
	if m.Degenerate() {
		return false
	}
	switch m.focus {
	case MaxHandle:
		return m.Set(MaxHandle, m.hi+delta)
	default:
		return m.Set(MinHandle, m.lo+delta)
	}
}

// PageSize is the coarse keyboard step: a tenth of the span, at least 1.
func (m *Model) PageSize() int {
	p := (m.facetMax - m.facetMin) / 10
	if p < 1 {
		return 1
	}
	return p
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
