package filterpanel

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pders01/shelf/internal/debounce"
	"github.com/pders01/shelf/internal/facet"
	"github.com/pders01/shelf/internal/slider"
)

// Update handles debounce ticks, pointer and keyboard input. Ticks are
// processed even while the drawer is hidden so that an edit made just
// before hiding still reaches the owner.
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case debounce.FireMsg:
		if m.closed || !m.debounce.Accept(msg) {
			return m, nil
		}
		return m, m.commit(msg.Key)

	case tea.MouseMsg:
		if !m.IsOpen() {
			return m, nil
		}
		return m, m.handleMouse(msg)

	case tea.KeyMsg:
		if !m.IsOpen() {
			return m, nil
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

// Owns reports whether msg is a debounce tick scheduled by this panel.
func (m *Model) Owns(msg tea.Msg) bool {
	fire, ok := msg.(debounce.FireMsg)
	return ok && m.debounce.Owns(fire)
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.capture.held() {
		switch msg.Action {
		case tea.MouseActionMotion:
			if m.capture.target.Drag(msg.X) {
				return m.touchRange(m.capture.key)
			}
			return nil
		case tea.MouseActionRelease:
			m.capture.release()
			return nil
		default:
			m.capture.release()
		}
	}

	if msg.Action != tea.MouseActionPress {
		return nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.scrollBy(-1)
		return nil
	case tea.MouseButtonWheelDown:
		m.scrollBy(1)
		return nil
	case tea.MouseButtonLeft:
	default:
		return nil
	}

	i, ok := m.rowAt(msg.X, msg.Y)
	if !ok {
		return nil
	}
	m.cursor = i
	r := m.rows()[i]
	if r.kind == rowSlider {
		s := m.sliders[r.key]
		if s == nil || s.Degenerate() {
			return nil
		}
		changed := s.Press(msg.X)
		m.capture.acquire(r.key, s)
		if changed {
			return m.touchRange(r.key)
		}
		return nil
	}
	return m.activate(r)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Toggle):
		return m.activate(m.cursorRow())
	case key.Matches(msg, m.keys.SwitchHandle):
		if s := m.cursorSlider(); s != nil {
			s.SwitchFocus()
		}
	case key.Matches(msg, m.keys.Left):
		return m.stepCursor(-1, false)
	case key.Matches(msg, m.keys.Right):
		return m.stepCursor(1, false)
	case key.Matches(msg, m.keys.PageLeft):
		return m.stepCursor(-1, true)
	case key.Matches(msg, m.keys.PageRight):
		return m.stepCursor(1, true)
	case key.Matches(msg, m.keys.Reset):
		if m.HasAppliedFilters() {
			return m.ClearAll()
		}
	case key.Matches(msg, m.keys.Close):
		return emit(CloseMsg{})
	}
	return nil
}

func (m *Model) cursorSlider() *slider.Model {
	r := m.cursorRow()
	if r.kind != rowSlider {
		return nil
	}
	return m.sliders[r.key]
}

func (m *Model) stepCursor(dir int, page bool) tea.Cmd {
	r := m.cursorRow()
	s := m.cursorSlider()
	if s == nil {
		return nil
	}
	delta := dir
	if page {
		delta *= s.PageSize()
	}
	if !s.Step(delta) {
		return nil
	}
	return m.touchRange(r.key)
}

func (m *Model) activate(r row) tea.Cmd {
	switch r.kind {
	case rowHeader:
		m.ToggleExpanded(r.key)
	case rowReset:
		return m.ClearAll()
	case rowOption:
		f, ok := m.facet(r.key)
		if !ok {
			return nil
		}
		if f.EffectiveKind() == facet.MinSelect {
			v, ok := facet.ToInt(r.option.Value)
			if !ok {
				return nil
			}
			return m.SelectMin(r.key, v)
		}
		return m.ToggleOption(r.key, r.option.Value)
	}
	return nil
}
