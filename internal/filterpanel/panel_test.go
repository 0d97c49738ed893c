package filterpanel

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/shelf/internal/debounce"
	"github.com/pders01/shelf/internal/facet"
	"github.com/pders01/shelf/internal/slider"
)

func testFacets() []facet.Facet {
	return []facet.Facet{
		{
			Key: "brand", Label: "Brand", Kind: facet.Checkbox,
			Options: []facet.Option{
				{Value: "acme", Count: 3, HasCount: true},
				{Value: "globex", Count: 1, HasCount: true},
			},
		},
		{Key: "price", Label: "Price", Kind: facet.Range, Min: 0, Max: 100},
		{
			Key: "rating", Label: "Rating", Kind: facet.MinSelect,
			Options: []facet.Option{{Value: "4", Label: "4+"}, {Value: "3", Label: "3+"}},
		},
	}
}

func newTestPanel(t *testing.T) *Model {
	t.Helper()
	opts := DefaultOptions()
	opts.Debounce = time.Millisecond
	p := New(opts)
	p.SetFacets(testFacets())
	return p
}

func priceSlider(t *testing.T, p *Model) *slider.Model {
	t.Helper()
	s, ok := p.Slider("price")
	require.True(t, ok)
	return s
}

// deliver runs cmd, feeds any debounce tick back into the panel and
// returns the messages that reached the owner.
func deliver(t *testing.T, p *Model, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if fire, ok := msg.(debounce.FireMsg); ok {
		_, next := p.Update(fire)
		return deliver(t, p, next)
	}
	return []tea.Msg{msg}
}

func changes(msgs []tea.Msg) []ChangeMsg {
	var out []ChangeMsg
	for _, m := range msgs {
		if c, ok := m.(ChangeMsg); ok {
			out = append(out, c)
		}
	}
	return out
}

func sliderRowY(t *testing.T, p *Model) int {
	t.Helper()
	for i, r := range p.rows() {
		if r.kind == rowSlider && r.key == "price" {
			y, ok := p.rowScreenY(i)
			require.True(t, ok)
			return y
		}
	}
	t.Fatal("price slider row not found")
	return 0
}

func TestRangeHandlesNeverCross(t *testing.T) {
	p := newTestPanel(t)
	p.SetRange("price", FieldMin, 80)
	p.SetRange("price", FieldMax, 50)

	lo, hi := priceSlider(t, p).Value()
	assert.Equal(t, 80, lo)
	assert.Equal(t, 80, hi)

	p.SetRange("price", FieldMin, 95)
	lo, hi = priceSlider(t, p).Value()
	assert.LessOrEqual(t, lo, hi)
	assert.Equal(t, 80, lo)
}

func TestRapidRangeEditsCommitOnce(t *testing.T) {
	p := newTestPanel(t)

	var cmds []tea.Cmd
	for v := 21; v <= 30; v++ {
		cmd := p.SetRange("price", FieldMin, v)
		require.NotNil(t, cmd)
		cmds = append(cmds, cmd)
	}

	var got []ChangeMsg
	for _, cmd := range cmds {
		got = append(got, changes(deliver(t, p, cmd))...)
	}

	require.Len(t, got, 1)
	assert.Equal(t, "price", got[0].Key)
	r, ok := got[0].Value.(facet.RangeValue)
	require.True(t, ok)
	require.NotNil(t, r.Min)
	assert.Equal(t, 30, *r.Min)
	assert.Nil(t, r.Max, "a bound on the facet edge is not a filter")
}

func TestRangeEditIsVisibleBeforeCommit(t *testing.T) {
	p := newTestPanel(t)
	cmd := p.SetRange("price", FieldMax, "70")
	require.NotNil(t, cmd)

	_, hi := priceSlider(t, p).Value()
	assert.Equal(t, 70, hi)
	_, phi, ok := p.PendingRange("price")
	assert.True(t, ok)
	assert.Equal(t, 70, phi)
}

func TestMalformedRangeInputIsIgnored(t *testing.T) {
	p := newTestPanel(t)
	assert.Nil(t, p.SetRange("price", FieldMin, "cheap"))
	assert.Nil(t, p.SetRange("price", FieldMin, nil))
	assert.Nil(t, p.SetRange("missing", FieldMin, 10))

	lo, hi := priceSlider(t, p).Value()
	assert.Equal(t, 0, lo)
	assert.Equal(t, 100, hi)
}

func TestToggleOptionTwiceRestoresSelection(t *testing.T) {
	p := newTestPanel(t)

	first := changes(deliver(t, p, p.ToggleOption("brand", "acme")))
	require.Len(t, first, 1)
	set, ok := first[0].Value.(facet.Set)
	require.True(t, ok)
	assert.True(t, set.Has("acme"))
	assert.True(t, p.HasAppliedFilters())

	second := changes(deliver(t, p, p.ToggleOption("brand", "acme")))
	require.Len(t, second, 1)
	assert.True(t, second[0].Value.IsZero())
	assert.False(t, p.HasAppliedFilters())
	_, present := p.Selected()["brand"]
	assert.False(t, present)

	assert.True(t, set.Has("acme"), "the emitted set is not mutated later")
}

func TestToggleOptionRejectsRangeFacet(t *testing.T) {
	p := newTestPanel(t)
	assert.Nil(t, p.ToggleOption("price", "10"))
	assert.NotNil(t, p.ToggleOption("attr.colour", "red"), "dynamic keys behave like checkboxes")
}

func TestSelectMinReselectClears(t *testing.T) {
	p := newTestPanel(t)

	got := changes(deliver(t, p, p.SelectMin("rating", 4)))
	require.Len(t, got, 1)
	assert.True(t, got[0].Value.(facet.Number).Is(4))

	got = changes(deliver(t, p, p.SelectMin("rating", 4)))
	require.Len(t, got, 1)
	assert.True(t, got[0].Value.IsZero())
}

func TestResetRowOnlyWithAppliedFilters(t *testing.T) {
	p := newTestPanel(t)
	for _, r := range p.rows() {
		assert.NotEqual(t, rowReset, r.kind)
	}

	p.SetSelected(facet.Selected{"brand": facet.NewSet("acme")})
	require.NotEmpty(t, p.rows())
	assert.Equal(t, rowReset, p.rows()[0].kind)
	assert.Contains(t, p.View(), "reset filters")

	msgs := deliver(t, p, p.ClearAll())
	require.Len(t, msgs, 1)
	assert.IsType(t, ClearMsg{}, msgs[0])
	assert.False(t, p.HasAppliedFilters())
}

func TestEmptySelectionsAreNotApplied(t *testing.T) {
	p := newTestPanel(t)
	p.SetSelected(facet.Selected{
		"brand":  facet.Set{},
		"price":  facet.RangeValue{},
		"rating": facet.Number{Value: facet.Int(0)},
	})
	assert.False(t, p.HasAppliedFilters())
}

func TestExternalSelectionMovesSlider(t *testing.T) {
	p := newTestPanel(t)
	p.SetSelected(facet.Selected{"price": facet.NewRange(10, 90)})

	lo, hi := priceSlider(t, p).Value()
	assert.Equal(t, 10, lo)
	assert.Equal(t, 90, hi)
}

func TestExternalChangeDropsPendingEdit(t *testing.T) {
	p := newTestPanel(t)
	cmd := p.SetRange("price", FieldMin, 20)
	require.NotNil(t, cmd)

	p.SetSelected(facet.Selected{"price": facet.NewRange(40, 60)})

	lo, hi := priceSlider(t, p).Value()
	assert.Equal(t, 40, lo)
	assert.Equal(t, 60, hi)
	_, _, pending := p.PendingRange("price")
	assert.False(t, pending)
	assert.Empty(t, deliver(t, p, cmd))
}

func TestOwnCommitEchoKeepsSlider(t *testing.T) {
	p := newTestPanel(t)
	got := changes(deliver(t, p, p.SetRange("price", FieldMin, 20)))
	require.Len(t, got, 1)

	p.SetSelected(facet.Selected{"price": got[0].Value})

	lo, hi := priceSlider(t, p).Value()
	assert.Equal(t, 20, lo)
	assert.Equal(t, 100, hi)
	_, _, pending := p.PendingRange("price")
	assert.False(t, pending)
}

func TestMalformedSelectedValues(t *testing.T) {
	p := newTestPanel(t)
	p.SetSelectedRaw(map[string]any{
		"brand":  []string{"acme"},
		"price":  "cheap",
		"rating": map[string]any{"x": 1},
	})

	assert.False(t, p.HasAppliedFilters())
	lo, hi := priceSlider(t, p).Value()
	assert.Equal(t, 0, lo)
	assert.Equal(t, 100, hi)
	assert.NotPanics(t, func() { _ = p.View() })
}

func TestLooseRangeShapes(t *testing.T) {
	p := newTestPanel(t)
	p.SetSelectedRaw(map[string]any{
		"price": map[string]any{"min": "15", "max": 85.4},
	})
	lo, hi := priceSlider(t, p).Value()
	assert.Equal(t, 15, lo)
	assert.Equal(t, 85, hi)
}

func TestSetFacetsReexpandsSections(t *testing.T) {
	p := newTestPanel(t)
	p.ToggleExpanded("brand")
	assert.False(t, p.Expanded("brand"))

	p.SetFacets(testFacets())
	assert.True(t, p.Expanded("brand"))
}

func TestToggleExpandedKeepsSelection(t *testing.T) {
	p := newTestPanel(t)
	p.SetSelected(facet.Selected{"brand": facet.NewSet("acme")})
	p.ToggleExpanded("brand")
	assert.True(t, facet.SetOf(p.Selected()["brand"]).Has("acme"))
}

func TestFacetRemovalCancelsPendingCommit(t *testing.T) {
	p := newTestPanel(t)
	cmd := p.SetRange("price", FieldMax, 60)
	require.NotNil(t, cmd)

	p.SetFacets(testFacets()[:1])

	_, ok := p.Slider("price")
	assert.False(t, ok)
	assert.Empty(t, deliver(t, p, cmd))
}

func TestDragCapturesPointer(t *testing.T) {
	p := newTestPanel(t)
	s := priceSlider(t, p)
	y := sliderRowY(t, p)

	_, cmd := p.Update(tea.MouseMsg{
		X: s.X + s.Width/2, Y: y,
		Action: tea.MouseActionPress, Button: tea.MouseButtonLeft,
	})
	require.NotNil(t, cmd)
	assert.Equal(t, "price", p.Captured())
	assert.True(t, s.Dragging())

	// Motion far outside the panel still drives the captured slider.
	_, cmd = p.Update(tea.MouseMsg{X: s.X + s.Width + 50, Y: y + 40, Action: tea.MouseActionMotion})
	require.NotNil(t, cmd)
	_, hi := s.Value()
	assert.Equal(t, 100, hi)

	p.Update(tea.MouseMsg{X: s.X, Y: y, Action: tea.MouseActionRelease})
	assert.Empty(t, p.Captured())
	assert.False(t, s.Dragging())

	_, cmd = p.Update(tea.MouseMsg{X: s.X, Y: y, Action: tea.MouseActionMotion})
	assert.Nil(t, cmd)
}

func TestNonLeftButtonIgnored(t *testing.T) {
	p := newTestPanel(t)
	s := priceSlider(t, p)
	y := sliderRowY(t, p)

	for _, button := range []tea.MouseButton{tea.MouseButtonRight, tea.MouseButtonMiddle} {
		_, cmd := p.Update(tea.MouseMsg{
			X: s.X + s.Width/2, Y: y,
			Action: tea.MouseActionPress, Button: button,
		})
		assert.Nil(t, cmd, button)
		assert.Empty(t, p.Captured())
		assert.False(t, s.Dragging())
		lo, hi := s.Value()
		assert.Equal(t, 0, lo)
		assert.Equal(t, 100, hi)
	}
}

func TestCloseMidDragReleasesEverything(t *testing.T) {
	p := newTestPanel(t)
	s := priceSlider(t, p)
	y := sliderRowY(t, p)

	_, cmd := p.Update(tea.MouseMsg{
		X: s.X + s.Width/2, Y: y,
		Action: tea.MouseActionPress, Button: tea.MouseButtonLeft,
	})
	require.NotNil(t, cmd)
	require.Equal(t, "price", p.Captured())

	p.Close()

	assert.Empty(t, p.Captured())
	assert.False(t, s.Dragging())
	assert.Empty(t, deliver(t, p, cmd), "no commit after teardown")
	assert.Empty(t, p.View())
}

func TestHiddenPanelStillCommits(t *testing.T) {
	p := newTestPanel(t)
	cmd := p.SetRange("price", FieldMin, 5)
	p.SetOpen(false)

	assert.Len(t, changes(deliver(t, p, cmd)), 1)
}

func TestKeyboardStepsFocusedHandle(t *testing.T) {
	p := newTestPanel(t)
	for i, r := range p.rows() {
		if r.kind == rowSlider {
			p.cursor = i
		}
	}

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyRight})
	require.NotNil(t, cmd)
	lo, _ := priceSlider(t, p).Value()
	assert.Equal(t, 1, lo)

	p.Update(tea.KeyMsg{Type: tea.KeyTab})
	_, cmd = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'H'}})
	require.NotNil(t, cmd)
	_, hi := priceSlider(t, p).Value()
	assert.Equal(t, 90, hi)
}

func TestEscRequestsClose(t *testing.T) {
	p := newTestPanel(t)
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, CloseMsg{}, cmd())
}

func TestClickOptionTogglesIt(t *testing.T) {
	p := newTestPanel(t)
	ox, _ := p.origin()
	y, ok := p.rowScreenY(1)
	require.True(t, ok)

	_, cmd := p.Update(tea.MouseMsg{X: ox + 3, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	got := changes(deliver(t, p, cmd))
	require.Len(t, got, 1)
	assert.Equal(t, "brand", got[0].Key)
	assert.True(t, got[0].Value.(facet.Set).Has("acme"))
}

func TestViewShowsSectionsAndCounts(t *testing.T) {
	p := newTestPanel(t)
	p.SetSelected(facet.Selected{"brand": facet.NewSet("acme")})
	out := p.View()

	assert.Contains(t, out, "Brand")
	assert.Contains(t, out, "[x] acme")
	assert.Contains(t, out, "[ ] globex")
	assert.Contains(t, out, "( ) 4+")
	assert.Contains(t, out, "0 – 100")
	assert.Contains(t, out, "(1)")
}

func TestSelectMinAcceptsDecimalOptionValue(t *testing.T) {
	p := New(DefaultOptions())
	p.SetFacets([]facet.Facet{{
		Key: "rating", Label: "Rating", Kind: facet.MinSelect,
		Options: []facet.Option{{Value: "4.0", Label: "4+"}},
	}})
	for i, r := range p.rows() {
		if r.kind == rowOption {
			p.cursor = i
		}
	}

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got := changes(deliver(t, p, cmd))
	require.Len(t, got, 1)
	assert.Equal(t, "rating", got[0].Key)
	assert.True(t, facet.NumberOf(got[0].Value).Is(4))
	assert.Contains(t, p.View(), "(•) 4+")
}
