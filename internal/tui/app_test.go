package tui

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/shelf/internal/catalog"
	"github.com/pders01/shelf/internal/config"
	"github.com/pders01/shelf/internal/facet"
	"github.com/pders01/shelf/internal/feed"
	"github.com/pders01/shelf/internal/filterpanel"
	"github.com/pders01/shelf/internal/media"
	"github.com/pders01/shelf/internal/storage"
)

// newTestApp returns a sized app over the built-in sample catalog with
// the first query applied.
func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.TestConfig()

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "shelf.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	idx, err := catalog.OpenIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	schema, err := catalog.DefaultSchema()
	require.NoError(t, err)

	cat := catalog.New(store, idx, schema)
	require.NoError(t, cat.Load())

	manager := feed.NewManager(store, cfg)
	manager.AddUpdateListener(cat)
	manager.AddDeleteListener(cat)
	_, n, err := manager.Seed()
	require.NoError(t, err)
	require.Positive(t, n)

	a := NewApp(cfg, store, cat, manager, media.NewLauncher(""))
	a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	drain(a, a.Init())
	require.NotNil(t, a.result)
	return a
}

// drain runs cmd and feeds what it produces back into the app until
// nothing is left. Spinner ticks are dropped so the loop terminates.
func drain(a *App, cmd tea.Cmd) {
	drainDepth(a, cmd, 0)
}

func drainDepth(a *App, cmd tea.Cmd, depth int) {
	if cmd == nil || depth > 16 {
		return
	}
	switch msg := cmd().(type) {
	case nil, spinner.TickMsg, tea.QuitMsg:
		return
	case tea.BatchMsg:
		for _, c := range msg {
			drainDepth(a, c, depth+1)
		}
	default:
		_, next := a.Update(msg)
		drainDepth(a, next, depth+1)
	}
}

func listedProducts(a *App) []*storage.Product {
	var out []*storage.Product
	for _, item := range a.productList.Items() {
		out = append(out, item.(productItem).product)
	}
	return out
}

func TestInitialQuery(t *testing.T) {
	a := newTestApp(t)

	assert.Equal(t, a.catalog.Len(), a.result.Total)
	assert.Len(t, a.productList.Items(), a.config.Catalog.PageSize)
	assert.NotEmpty(t, a.panel.Facets())
	_, ok := facet.Find(a.panel.Facets(), "brand")
	assert.True(t, ok)

	titles := make([]string, 0)
	for _, p := range listedProducts(a) {
		titles = append(titles, strings.ToLower(p.Title))
	}
	assert.True(t, sort.StringsAreSorted(titles), "default sort is by title: %v", titles)
}

func TestFilterChangeRequeries(t *testing.T) {
	a := newTestApp(t)

	_, cmd := a.Update(filterpanel.ChangeMsg{Key: "brand", Value: facet.NewSet("Acme")})
	drain(a, cmd)

	require.NotEmpty(t, a.productList.Items())
	for _, p := range listedProducts(a) {
		assert.Equal(t, "Acme", p.Brand)
	}
	assert.Contains(t, a.request.Selected, "brand")
	assert.Contains(t, a.panel.Selected(), "brand")
	assert.Equal(t, 0, a.request.Page)

	_, cmd = a.Update(filterpanel.ChangeMsg{Key: "brand", Value: facet.NewSet()})
	drain(a, cmd)
	assert.NotContains(t, a.request.Selected, "brand")
	assert.Equal(t, a.catalog.Len(), a.result.Total)
}

func TestClearFilters(t *testing.T) {
	a := newTestApp(t)

	_, cmd := a.Update(filterpanel.ChangeMsg{Key: "price", Value: facet.NewRange(40, 80)})
	drain(a, cmd)
	require.Less(t, a.result.Total, a.catalog.Len())
	for _, p := range listedProducts(a) {
		assert.GreaterOrEqual(t, p.Price, 40)
		assert.LessOrEqual(t, p.Price, 80)
	}

	_, cmd = a.Update(filterpanel.ClearMsg{})
	drain(a, cmd)
	assert.Empty(t, a.request.Selected)
	assert.Equal(t, MsgFiltersCleared, a.status)
	assert.Equal(t, a.catalog.Len(), a.result.Total)
}

func TestStaleQueryResultDropped(t *testing.T) {
	a := newTestApp(t)

	a.request.Selected = facet.Selected{"brand": facet.NewSet("Acme")}
	older := a.runQuery()
	a.request.Selected = facet.Selected{"brand": facet.NewSet("Globex")}
	newer := a.runQuery()

	newerMsg := newer()
	olderMsg := older()
	a.Update(newerMsg)
	a.Update(olderMsg)

	require.NotEmpty(t, a.productList.Items())
	for _, p := range listedProducts(a) {
		assert.Equal(t, "Globex", p.Brand)
	}
}

func TestPageOvershootClamps(t *testing.T) {
	a := newTestApp(t)

	a.request.Page = 50
	drain(a, a.runQuery())

	last := a.result.Pages() - 1
	assert.Equal(t, last, a.request.Page)
	assert.NotEmpty(t, a.productList.Items())
}

func TestCloseMsgHidesDrawer(t *testing.T) {
	a := newTestApp(t)
	a.focus = FocusFilters
	require.True(t, a.panel.IsOpen())

	a.Update(filterpanel.CloseMsg{})

	assert.False(t, a.panel.IsOpen())
	assert.Equal(t, FocusList, a.focus)
}

func TestSearchDebounce(t *testing.T) {
	a := newTestApp(t)
	a.view = ViewSearch
	a.searchInput.SetValue("mouse")

	stale := a.searchDebounce.Schedule(searchKey)
	fresh := a.searchDebounce.Schedule(searchKey)

	_, cmd := a.Update(stale())
	assert.Nil(t, cmd, "a superseded tick must not commit")
	assert.Empty(t, a.request.Text)

	_, cmd = a.Update(fresh())
	require.NotNil(t, cmd)
	assert.Equal(t, "mouse", a.request.Text)
	drain(a, cmd)
	assert.Positive(t, a.result.Total)
	assert.Less(t, a.result.Total, a.catalog.Len())
}

func TestMouseRouting(t *testing.T) {
	a := newTestApp(t)
	require.True(t, a.panel.IsOpen())

	a.Update(tea.MouseMsg{X: a.panelX() + 2, Y: 3, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.Equal(t, FocusFilters, a.focus)

	a.Update(tea.MouseMsg{X: 1, Y: 3, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.Equal(t, FocusList, a.focus)

	a.Update(tea.MouseMsg{X: 1, Y: 3, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	assert.Equal(t, 1, a.productList.Index())
}

func TestRefreshKeepsSample(t *testing.T) {
	a := newTestApp(t)
	before := a.catalog.Len()

	drain(a, a.refreshAll())

	assert.False(t, a.loading)
	assert.NoError(t, a.err)
	assert.Equal(t, before, a.catalog.Len())
	assert.Contains(t, a.status, "Refreshed all sources")
}

func TestViewRendersDrawerAndPermalink(t *testing.T) {
	a := newTestApp(t)

	out := ansi.Strip(a.View())
	assert.Contains(t, out, "filters")
	assert.Contains(t, out, "Category")

	a.setStatus("ok", StatusInfo)
	bar := ansi.Strip(a.getCustomStatusBar())
	assert.Contains(t, bar, "sort=title")

	a.panel.SetOpen(false)
	a.layout()
	assert.NotContains(t, ansi.Strip(a.View()), "Category")
}

func TestInlineDrawerNarrowsList(t *testing.T) {
	a := newTestApp(t)
	a.config.Filters.Inline = true
	a.panel = filterpanel.New(filterpanel.Options{Open: true, Inline: true, Width: a.config.Filters.Width})
	a.layout()

	assert.Equal(t, a.width-a.panelWidth(), a.productList.Width())
}

func TestProductItemRendering(t *testing.T) {
	p := &storage.Product{Title: "Arc Mouse", Price: 1299, Brand: "Globex", Rating: 4, Store: "Demo", InStock: false}
	item := productItem{product: p}

	assert.Contains(t, ansi.Strip(item.Title()), "sold out")
	desc := ansi.Strip(item.Description())
	assert.Contains(t, desc, "$1,299")
	assert.Contains(t, desc, "Globex")
	assert.Contains(t, desc, "★★★★☆")
	assert.Equal(t, "Arc Mouse", item.FilterValue())
}

func TestCountErrors(t *testing.T) {
	assert.Equal(t, 0, countErrors(nil))
	assert.Equal(t, 1, countErrors(assert.AnError))
}
