// Package filterpanel is the facet filter drawer: one collapsible section
// per facet with checkboxes, single-select "min" options and dual range
// sliders. It never fetches anything. The owner supplies facets and the
// current selection and receives ChangeMsg and ClearMsg in return.
//
// Checkbox and min selections are reported immediately. Range edits update
// the slider at once and are committed once the range has been quiet for
// the debounce delay.
package filterpanel

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pders01/shelf/internal/debounce"
	"github.com/pders01/shelf/internal/debuglog"
	"github.com/pders01/shelf/internal/facet"
	"github.com/pders01/shelf/internal/slider"
)

// Field names one bound of a range facet.
type Field string

const (
	FieldMin Field = "min"
	FieldMax Field = "max"
)

func (f Field) handle() slider.Handle {
	switch f {
	case FieldMin:
		return slider.MinHandle
	case FieldMax:
		return slider.MaxHandle
	default:
		return slider.None
	}
}

// Options control presentation only.
type Options struct {
	Title     string
	Open      bool
	Inline    bool
	Sticky    bool
	StickyTop int
	Width     int
	Height    int
	Debounce  time.Duration
}

// DefaultOptions returns an open bordered drawer.
func DefaultOptions() Options {
	return Options{
		Title:    "filters",
		Open:     true,
		Sticky:   true,
		Width:    40,
		Debounce: debounce.DefaultDelay,
	}
}

type span struct {
	lo, hi int
}

// Model is the filter panel.
type Model struct {
	opts     Options
	keys     KeyMap
	styles   Styles
	debounce *debounce.Debouncer
	capture  capture

	facets   []facet.Facet
	selected facet.Selected
	expanded map[string]bool
	sliders  map[string]*slider.Model

	// pending holds range edits not yet confirmed by the owner, committed
	// the values this panel emitted, synced the owner's last known value.
	pending   map[string]span
	committed map[string]span
	synced    map[string]span

	cursor  int
	scroll  int
	offsetX int
	offsetY int
	closed  bool
}

// New returns an empty panel.
func New(opts Options) *Model {
	if opts.Width <= 0 {
		opts.Width = DefaultOptions().Width
	}
	return &Model{
		opts:      opts,
		keys:      DefaultKeyMap(),
		styles:    DefaultStyles(),
		debounce:  debounce.New(opts.Debounce),
		selected:  facet.Selected{},
		expanded:  make(map[string]bool),
		sliders:   make(map[string]*slider.Model),
		pending:   make(map[string]span),
		committed: make(map[string]span),
		synced:    make(map[string]span),
	}
}

// KeyMap exposes the bindings for help rendering.
func (m *Model) KeyMap() KeyMap { return m.keys }

// SetStyles replaces the panel styles.
func (m *Model) SetStyles(s Styles) { m.styles = s }

// Options returns the presentation options.
func (m *Model) Options() Options { return m.opts }

// IsOpen reports whether the drawer is shown.
func (m *Model) IsOpen() bool { return m.opts.Open && !m.closed }

// SetOpen shows or hides the drawer. Hiding keeps pending commits alive.
func (m *Model) SetOpen(open bool) {
	m.opts.Open = open
	if !open {
		m.capture.release()
	}
}

// SetOffset records where the panel is drawn so mouse positions can be
// translated into panel coordinates.
func (m *Model) SetOffset(x, y int) {
	m.offsetX, m.offsetY = x, y
	m.layoutSliders()
}

// SetSize sets the outer width and height. A zero height is unbounded.
func (m *Model) SetSize(width, height int) {
	if width > 0 {
		m.opts.Width = width
	}
	m.opts.Height = height
	m.layoutSliders()
	m.ensureCursorVisible()
}

// Facets returns the current facet snapshot.
func (m *Model) Facets() []facet.Facet { return m.facets }

// Selected returns the panel's view of the selection.
func (m *Model) Selected() facet.Selected { return m.selected }

// HasAppliedFilters reports whether a reset would change anything.
func (m *Model) HasAppliedFilters() bool {
	return facet.HasApplied(m.selected)
}

// Expanded reports whether the section for key is open.
func (m *Model) Expanded(key string) bool { return m.expanded[key] }

// Slider returns the range slider for key.
func (m *Model) Slider(key string) (*slider.Model, bool) {
	s, ok := m.sliders[key]
	return s, ok
}

// PendingRange returns the uncommitted range for key, if any.
func (m *Model) PendingRange(key string) (lo, hi int, ok bool) {
	p, ok := m.pending[key]
	return p.lo, p.hi, ok
}

// Captured returns the key of the slider holding the pointer, or "".
func (m *Model) Captured() string { return m.capture.key }

// Closed reports whether Close has been called.
func (m *Model) Closed() bool { return m.closed }

func (m *Model) facet(key string) (facet.Facet, bool) {
	return facet.Find(m.facets, key)
}

// SetFacets replaces the facet snapshot. Every section is expanded again,
// and state belonging to facets that disappeared is dropped along with
// any commit still waiting for them.
func (m *Model) SetFacets(facets []facet.Facet) {
	m.facets = append([]facet.Facet(nil), facets...)
	m.expanded = make(map[string]bool, len(facets))

	live := make(map[string]bool, len(facets))
	for _, f := range m.facets {
		m.expanded[f.Key] = true
		if f.EffectiveKind() != facet.Range {
			continue
		}
		live[f.Key] = true
		lo, hi := f.Bounds()
		s, ok := m.sliders[f.Key]
		if !ok {
			s = slider.New(lo, hi)
			m.sliders[f.Key] = s
			next := m.ownerRange(f)
			m.synced[f.Key] = next
			s.SetValue(next.lo, next.hi)
			continue
		}
		s.SetBounds(lo, hi)
		if p, ok := m.pending[f.Key]; ok {
			s.SetValue(p.lo, p.hi)
			plo, phi := s.Value()
			m.pending[f.Key] = span{plo, phi}
		} else {
			next := m.ownerRange(f)
			m.synced[f.Key] = next
			s.SetValue(next.lo, next.hi)
		}
	}

	for key := range m.sliders {
		if live[key] {
			continue
		}
		if m.capture.key == key {
			m.capture.release()
		}
		m.debounce.Cancel(key)
		delete(m.sliders, key)
		delete(m.pending, key)
		delete(m.committed, key)
		delete(m.synced, key)
	}

	m.layoutSliders()
	m.clampCursor()
}

// SetSelected installs the owner's selection. Values are normalised once
// here. A range that changed for any reason other than this panel's own
// commit overwrites the slider and drops the edit in flight.
func (m *Model) SetSelected(sel facet.Selected) {
	raw := make(map[string]any, len(sel))
	for key, v := range sel {
		if r, ok := v.(facet.Raw); ok {
			raw[key] = r.V
			continue
		}
		raw[key] = v
	}
	m.SetSelectedRaw(raw)
}

// SetSelectedRaw is SetSelected for loosely typed input such as decoded
// JSON or query parameters.
func (m *Model) SetSelectedRaw(raw map[string]any) {
	m.selected = facet.NormalizeSelected(m.facets, raw)

	for _, f := range m.facets {
		if f.EffectiveKind() != facet.Range {
			continue
		}
		s := m.sliders[f.Key]
		if s == nil {
			continue
		}
		incoming := m.ownerRange(f)
		prev, seen := m.synced[f.Key]
		m.synced[f.Key] = incoming
		if seen && prev == incoming {
			continue
		}
		if own, ok := m.committed[f.Key]; ok && own == incoming {
			delete(m.committed, f.Key)
			if p, ok := m.pending[f.Key]; ok && p == incoming {
				delete(m.pending, f.Key)
			}
		} else {
			if _, ok := m.pending[f.Key]; ok {
				debuglog.Debugf("filter %s changed externally, dropping pending edit", f.Key)
			}
			delete(m.pending, f.Key)
			delete(m.committed, f.Key)
			m.debounce.Cancel(f.Key)
		}
		if p, ok := m.pending[f.Key]; ok {
			s.SetValue(p.lo, p.hi)
		} else {
			s.SetValue(incoming.lo, incoming.hi)
		}
	}
}

func (m *Model) ownerRange(f facet.Facet) span {
	lo, hi := f.Bounds()
	rlo, rhi := facet.ClampRange(facet.RangeOf(m.selected[f.Key]), lo, hi)
	return span{rlo, rhi}
}

// ToggleExpanded flips the visibility of a section. The selection is not
// touched.
func (m *Model) ToggleExpanded(key string) {
	if _, ok := m.facet(key); !ok {
		return
	}
	m.expanded[key] = !m.expanded[key]
	if !m.expanded[key] {
		if c := m.cursorRow(); c.key == key && c.kind != rowHeader {
			m.cursor = m.headerIndex(key)
		}
	}
	m.clampCursor()
}

// ToggleOption adds or removes value from a checkbox facet and reports
// the new set immediately. The previous set is never modified.
func (m *Model) ToggleOption(key, value string) tea.Cmd {
	if f, ok := m.facet(key); ok {
		if !f.EffectiveKind().IsSetKind() {
			return nil
		}
	} else if !facet.IsDynamicKey(key) {
		return nil
	}
	next := facet.SetOf(m.selected[key]).Toggle(value)
	m.selected = m.selected.With(key, next)
	return emit(ChangeMsg{Key: key, Value: next})
}

// SelectMin selects a "min" option; choosing the current value clears it.
func (m *Model) SelectMin(key string, value int) tea.Cmd {
	f, ok := m.facet(key)
	if !ok || f.EffectiveKind() != facet.MinSelect {
		return nil
	}
	next := facet.Number{}
	if !facet.NumberOf(m.selected[key]).Is(value) {
		next = facet.Number{Value: facet.Int(value)}
	}
	m.selected = m.selected.With(key, next)
	return emit(ChangeMsg{Key: key, Value: next})
}

// SetRange moves one bound of a range facet. Malformed values are
// ignored. The slider updates at once; the owner hears about it after the
// debounce delay.
func (m *Model) SetRange(key string, field Field, raw any) tea.Cmd {
	s, ok := m.sliders[key]
	if !ok {
		return nil
	}
	v, ok := facet.ToInt(raw)
	if !ok {
		return nil
	}
	if !s.Set(field.handle(), v) {
		return nil
	}
	return m.touchRange(key)
}

// ClearAll asks the owner to drop every selection and resets the local
// range state.
func (m *Model) ClearAll() tea.Cmd {
	m.capture.release()
	m.debounce.CancelAll()
	clear(m.pending)
	clear(m.committed)
	for _, s := range m.sliders {
		lo, hi := s.Bounds()
		s.SetValue(lo, hi)
	}
	m.selected = facet.Selected{}
	return emit(ClearMsg{})
}

// Close tears the panel down: the pointer capture is released and no
// pending commit will be reported afterwards.
func (m *Model) Close() {
	m.capture.release()
	m.debounce.CancelAll()
	clear(m.pending)
	m.closed = true
}

func (m *Model) touchRange(key string) tea.Cmd {
	s := m.sliders[key]
	lo, hi := s.Value()
	m.pending[key] = span{lo, hi}
	return m.debounce.Schedule(key)
}

func (m *Model) commit(key string) tea.Cmd {
	p, ok := m.pending[key]
	if !ok {
		return nil
	}
	f, ok := m.facet(key)
	if !ok {
		return nil
	}
	lo, hi := f.Bounds()
	value := facet.CompactRange(p.lo, p.hi, lo, hi)
	m.committed[key] = p
	m.selected = m.selected.With(key, value)
	debuglog.Debugf("commit %s=%s", key, value)
	return emit(ChangeMsg{Key: key, Value: value})
}
