package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pders01/shelf/internal/catalog"
	"github.com/pders01/shelf/internal/config"
)

// keyMap holds the resolved key strings. Action keys that are a single
// rune get the modifier so they never collide with list navigation or
// the filter drawer; quit, back, help and paging stay plain.
type keyMap struct {
	quit      string
	back      string
	help      string
	search    string
	filters   string
	importSrc string
	refresh   string
	open      string
	sort      string
	sources   string
	delete    string
	nextPage  string
	prevPage  string
}

func newKeyMap(cfg *config.Config) keyMap {
	b := cfg.Keys.Bindings
	mod := cfg.Keys.Modifier
	action := func(binding string) string {
		if mod != "" && utf8.RuneCountInString(binding) == 1 {
			return mod + "+" + binding
		}
		return binding
	}
	return keyMap{
		quit:      b.Quit,
		back:      b.Back,
		help:      b.Help,
		search:    action(b.Search),
		filters:   action(b.Filters),
		importSrc: action(b.Import),
		refresh:   action(b.Refresh),
		open:      action(b.Open),
		sort:      action(b.Sort),
		sources:   action(b.Sources),
		delete:    action(b.Delete),
		nextPage:  b.NextPage,
		prevPage:  b.PrevPage,
	}
}

// imageKey opens the product image from the reader.
const imageKey = "i"

type KeyHandler struct {
	app    *App
	config *config.Config
	keys   keyMap
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	return &KeyHandler{app: app, config: cfg, keys: newKeyMap(cfg)}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()

	if k == "ctrl+c" {
		return kh.app, kh.app.quit()
	}

	if kh.app.showHelp {
		kh.app.showHelp = false
		return kh.app, nil
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if kh.filtersFocused() && kh.isPanelKey(msg) {
		var cmd tea.Cmd
		kh.app.panel, cmd = kh.app.panel.Update(msg)
		return kh.app, cmd
	}

	if model, cmd, handled := kh.handleCustomKeys(k); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) filtersFocused() bool {
	a := kh.app
	return (a.view == ViewProducts || a.view == ViewSearch) &&
		a.focus == FocusFilters && a.panel.IsOpen()
}

func (kh *KeyHandler) isPanelKey(msg tea.KeyMsg) bool {
	km := kh.app.panel.KeyMap()
	return key.Matches(msg, km.Up, km.Down, km.Toggle, km.Left, km.Right,
		km.PageLeft, km.PageRight, km.SwitchHandle, km.Reset, km.Close)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewImport:
		return kh.app.importInput.Focused()
	case ViewSearch:
		return kh.app.searchInput.Focused()
	default:
		return false
	}
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return kh.navigateBack()
	case "enter":
		return kh.handleTextInputEnter()
	case "tab", "down":
		if kh.app.view == ViewSearch {
			return kh.leaveSearchInput()
		}
		return kh.delegateToTextInput(msg)
	default:
		return kh.delegateToTextInput(msg)
	}
}

func (kh *KeyHandler) handleTextInputEnter() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewImport:
		input := strings.TrimSpace(kh.app.importInput.Value())
		if input == "" {
			return kh.app, nil
		}
		return kh.app, tea.Batch(kh.app.startSpinner(MsgImporting), kh.app.importSources(input))

	case ViewSearch:
		return kh.leaveSearchInput()

	default:
		return kh.app, nil
	}
}

// leaveSearchInput commits the text immediately and hands keys to the
// product list while keeping the search box on screen.
func (kh *KeyHandler) leaveSearchInput() (tea.Model, tea.Cmd) {
	kh.app.searchDebounce.Cancel(searchKey)
	kh.app.searchInput.Blur()
	kh.app.focus = FocusList
	return kh.app, kh.app.commitSearch()
}

func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewImport:
		var cmd tea.Cmd
		kh.app.importInput, cmd = kh.app.importInput.Update(msg)
		return kh.app, cmd

	case ViewSearch:
		prev := sanitizeSearchInput(kh.app.searchInput.Value())
		var cmd tea.Cmd
		kh.app.searchInput, cmd = kh.app.searchInput.Update(msg)
		if sanitizeSearchInput(kh.app.searchInput.Value()) != prev {
			return kh.app, tea.Batch(cmd, kh.app.searchDebounce.Schedule(searchKey))
		}
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

// handleCustomKeys handles only our custom action keys
func (kh *KeyHandler) handleCustomKeys(k string) (tea.Model, tea.Cmd, bool) {
	switch k {
	case kh.keys.quit:
		return kh.app, kh.app.quit(), true
	case kh.keys.back:
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case kh.keys.help:
		kh.app.showHelp = true
		return kh.app, nil, true
	}

	switch kh.app.view {
	case ViewProducts, ViewSearch:
		return kh.handleProductsCustomKeys(k)
	case ViewReader:
		return kh.handleReaderCustomKeys(k)
	case ViewSources:
		return kh.handleSourcesCustomKeys(k)
	case ViewDeleteConfirm:
		return kh.handleDeleteConfirmKeys(k)
	default:
		return kh.app, nil, false
	}
}

func (kh *KeyHandler) handleProductsCustomKeys(k string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	switch k {
	case kh.keys.search:
		model, cmd := kh.enterSearchMode()
		return model, cmd, true

	case kh.keys.filters:
		switch {
		case !a.panel.IsOpen():
			a.panel.SetOpen(true)
			a.focus = FocusFilters
		case a.focus == FocusFilters:
			a.panel.SetOpen(false)
			a.focus = FocusList
		default:
			a.focus = FocusFilters
		}
		a.layout()
		return a, nil, true

	case "tab":
		if a.panel.IsOpen() {
			a.focus = FocusFilters
		}
		return a, nil, true

	case "shift+tab":
		a.focus = FocusList
		return a, nil, true

	case kh.keys.importSrc:
		a.previousView = a.view
		a.view = ViewImport
		a.importInput.Reset()
		a.importInput.Focus()
		return a, nil, true

	case kh.keys.refresh:
		return a, tea.Batch(a.startSpinner(MsgRefreshing), a.refreshAll()), true

	case kh.keys.sources:
		a.previousView = a.view
		a.view = ViewSources
		return a, a.loadSources(), true

	case kh.keys.sort:
		return a, a.cycleSort(), true

	case kh.keys.nextPage:
		return a, a.turnPage(1), true

	case kh.keys.prevPage:
		return a, a.turnPage(-1), true

	case kh.keys.open:
		if i, ok := a.productList.SelectedItem().(productItem); ok {
			return a, a.openURL(i.product.URL, "product page"), true
		}
		return a, nil, true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleReaderCustomKeys(k string) (tea.Model, tea.Cmd, bool) {
	p := kh.app.currentProduct
	if p == nil {
		return kh.app, nil, false
	}
	switch k {
	case kh.keys.open:
		return kh.app, kh.app.openURL(p.URL, "product page"), true
	case imageKey:
		return kh.app, kh.app.openURL(p.ImageURL, "image"), true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleSourcesCustomKeys(k string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	switch k {
	case kh.keys.delete:
		if i, ok := a.sourceList.SelectedItem().(sourceItem); ok {
			a.sourceToDelete = i.source
			a.view = ViewDeleteConfirm
		}
		return a, nil, true
	case kh.keys.importSrc:
		a.previousView = ViewSources
		a.view = ViewImport
		a.importInput.Reset()
		a.importInput.Focus()
		return a, nil, true
	case kh.keys.refresh:
		return a, tea.Batch(a.startSpinner(MsgRefreshing), a.refreshAll()), true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleDeleteConfirmKeys(k string) (tea.Model, tea.Cmd, bool) {
	if k == "enter" && kh.app.sourceToDelete != nil {
		id := kh.app.sourceToDelete.ID
		return kh.app, tea.Batch(kh.app.startSpinner(MsgDeleting), kh.app.deleteSource(id)), true
	}
	return kh.app, nil, false
}

// delegateToCharm lets Charm handle all keys we don't intercept
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch kh.app.view {
	case ViewProducts, ViewSearch:
		if kh.filtersFocused() {
			return kh.app, nil
		}
		kh.app.productList, cmd = kh.app.productList.Update(msg)
		if msg.String() == "enter" {
			if i, ok := kh.app.productList.SelectedItem().(productItem); ok {
				return kh.app, kh.openProduct(i)
			}
		}
		return kh.app, cmd

	case ViewReader:
		kh.app.viewport, cmd = kh.app.viewport.Update(msg)
		return kh.app, cmd

	case ViewSources:
		kh.app.sourceList, cmd = kh.app.sourceList.Update(msg)
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

func (kh *KeyHandler) openProduct(i productItem) tea.Cmd {
	a := kh.app
	a.currentProduct = i.product
	a.previousView = a.view
	a.view = ViewReader
	a.loadingProduct = true
	a.setStatus(MsgLoadingProduct, StatusInfo)
	return tea.Batch(a.spinner.Tick, a.renderProduct(i.product))
}

// navigateBack implements smart back navigation
func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	a := kh.app
	switch a.view {
	case ViewImport:
		a.importInput.Blur()
		a.view = a.previousView
		if a.view == ViewImport {
			a.view = ViewProducts
		}
		a.layout()
		return a, nil

	case ViewDeleteConfirm:
		a.sourceToDelete = nil
		a.view = ViewSources
		return a, nil

	case ViewSources:
		a.view = ViewProducts
		a.layout()
		return a, nil

	case ViewSearch:
		a.searchDebounce.Cancel(searchKey)
		a.searchInput.Reset()
		a.searchInput.Blur()
		a.view = ViewProducts
		a.focus = FocusList
		a.layout()
		a.request.Text = ""
		a.request.Page = 0
		if a.request.Sort == catalog.SortRelevance {
			a.request.Sort = a.config.Catalog.DefaultSort
		}
		return a, a.runQuery()

	case ViewReader:
		a.currentProduct = nil
		a.loadingProduct = false
		a.clearStatus()
		a.view = a.previousView
		if a.view == ViewReader {
			a.view = ViewProducts
		}
		return a, nil

	case ViewProducts:
		if a.focus == FocusFilters {
			a.focus = FocusList
			return a, nil
		}
		a.err = nil
		a.clearStatus()
		return a, nil

	default:
		return a, nil
	}
}

// enterSearchMode shows the search box above the list, prefilled with
// the committed text.
func (kh *KeyHandler) enterSearchMode() (tea.Model, tea.Cmd) {
	a := kh.app
	a.view = ViewSearch
	a.focus = FocusList
	a.searchInput.SetValue(a.request.Text)
	a.searchInput.CursorEnd()
	a.layout()
	return a, a.searchInput.Focus()
}

// sanitizeSearchInput sanitizes and limits search input length
func sanitizeSearchInput(input string) string {
	input = strings.TrimSpace(input)

	if len(input) > 256 {
		input = input[:256]
		for !utf8.ValidString(input) {
			input = input[:len(input)-1]
		}
	}

	input = strings.ReplaceAll(input, "\n", " ")
	input = strings.ReplaceAll(input, "\r", " ")
	input = strings.ReplaceAll(input, "\t", " ")

	for strings.Contains(input, "  ") {
		input = strings.ReplaceAll(input, "  ", " ")
	}

	return strings.TrimSpace(input)
}

// GetHelpForCurrentView returns only our custom help text (Charm handles the rest)
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	k := kh.keys
	switch kh.app.view {
	case ViewProducts, ViewSearch:
		if kh.app.view == ViewSearch && kh.app.searchInput.Focused() {
			return []string{"enter: results", "esc: clear search"}
		}
		return []string{
			k.search + ": search",
			k.filters + ": filters",
			k.sort + ": sort",
			k.prevPage + "/" + k.nextPage + ": page",
			k.open + ": open",
			k.importSrc + ": import",
			k.refresh + ": refresh",
			k.sources + ": sources",
			k.help + ": help",
		}

	case ViewReader:
		return []string{k.open + ": open page", imageKey + ": open image", k.back + ": back"}

	case ViewImport:
		return []string{"enter: import", "esc: cancel"}

	case ViewSources:
		help := []string{k.importSrc + ": import", k.refresh + ": refresh"}
		if len(kh.app.sources) > 0 {
			help = append(help, k.delete+": delete")
		}
		return append(help, k.back+": back")

	case ViewDeleteConfirm:
		return []string{"enter: confirm", "esc: cancel"}

	default:
		return []string{}
	}
}

