package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/pders01/shelf/internal/catalog"
	"github.com/pders01/shelf/internal/config"
	"github.com/pders01/shelf/internal/debounce"
	"github.com/pders01/shelf/internal/facet"
	"github.com/pders01/shelf/internal/feed"
	"github.com/pders01/shelf/internal/filterpanel"
	"github.com/pders01/shelf/internal/media"
	"github.com/pders01/shelf/internal/query"
	"github.com/pders01/shelf/internal/storage"
)

const (
	// statusLines is the separator plus the status bar.
	statusLines = 2
	// searchBoxLines is the bordered search input above the list.
	searchBoxLines = 3
	minPanelWidth  = 24
	searchKey      = "search"
)

type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	config     *config.Config
	store      *storage.Store
	catalog    *catalog.Catalog
	manager    *feed.Manager
	launcher   *media.Launcher
	keyHandler *KeyHandler

	productList    list.Model
	sourceList     list.Model
	panel          *filterpanel.Model
	searchInput    textinput.Model
	importInput    textinput.Model
	viewport       viewport.Model
	help           help.Model
	spinner        spinner.Model
	searchDebounce *debounce.Debouncer

	view         View
	previousView View
	focus        Focus
	showHelp     bool

	// request is the committed query; the panel and the search box only
	// propose changes to it.
	request  catalog.Request
	result   *catalog.Result
	querySeq int

	sources        []*storage.Source
	currentProduct *storage.Product
	sourceToDelete *storage.Source

	width      int
	height     int
	err        error
	status     string
	statusKind StatusKind
	loading    bool

	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
	loadingProduct  bool
}

func NewApp(cfg *config.Config, store *storage.Store, cat *catalog.Catalog, manager *feed.Manager, launcher *media.Launcher) *App {
	ApplyTheme(cfg.UI.Colors)

	productList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	productList.Title = "› products"
	productList.SetShowStatusBar(false)
	productList.SetFilteringEnabled(false)
	productList.SetShowHelp(false)

	sourceList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	sourceList.Title = "› sources"
	sourceList.SetShowStatusBar(false)
	sourceList.SetFilteringEnabled(false)
	sourceList.SetShowHelp(false)

	panel := filterpanel.New(filterpanel.Options{
		Title:     "filters",
		Open:      cfg.Filters.Open,
		Inline:    cfg.Filters.Inline,
		Sticky:    cfg.Filters.Sticky,
		StickyTop: cfg.Filters.StickyTop,
		Width:     cfg.Filters.Width,
		Debounce:  cfg.Filters.Debounce,
	})
	panel.SetStyles(panelStyles())

	si := textinput.New()
	si.Placeholder = "Search products..."
	si.CharLimit = 256

	ii := textinput.New()
	ii.Placeholder = "Feed or storefront URL (several separated by spaces)..."

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:            ctx,
		cancel:         cancel,
		config:         cfg,
		store:          store,
		catalog:        cat,
		manager:        manager,
		launcher:       launcher,
		productList:    productList,
		sourceList:     sourceList,
		panel:          panel,
		searchInput:    si,
		importInput:    ii,
		viewport:       viewport.New(0, 0),
		help:           help.New(),
		spinner:        sp,
		searchDebounce: debounce.New(cfg.Filters.Debounce),
		view:           ViewProducts,
		previousView:   ViewProducts,
		request: catalog.Request{
			Selected: facet.Selected{},
			Sort:     cfg.Catalog.DefaultSort,
			PageSize: cfg.Catalog.PageSize,
		},
	}

	app.keyHandler = NewKeyHandler(app, cfg)

	return app
}

// SetRequest replaces the initial query, for example one decoded from a
// permalink. Paging defaults come from the config when unset.
func (a *App) SetRequest(req catalog.Request) {
	if req.Selected == nil {
		req.Selected = facet.Selected{}
	}
	if req.PageSize == 0 {
		req.PageSize = a.config.Catalog.PageSize
	}
	if req.Sort == "" {
		req.Sort = a.config.Catalog.DefaultSort
	}
	a.request = req
}

// Request returns the committed query.
func (a *App) Request() catalog.Request { return a.request }

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	detail := a.config.UI.Detail
	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > detail.WordWrapMaxWidth {
		wordWrapWidth = detail.WordWrapMaxWidth
	}
	if wordWrapWidth < detail.WordWrapMinWidth {
		wordWrapWidth = detail.WordWrapMinWidth
	}
	if a.width < 50 {
		wordWrapWidth = max(a.width-4, 20)
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	return a.runQuery()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case tea.MouseMsg:
		return a, a.handleMouse(msg)

	case debounce.FireMsg:
		if a.panel.Owns(msg) {
			var cmd tea.Cmd
			a.panel, cmd = a.panel.Update(msg)
			return a, cmd
		}
		if a.searchDebounce.Accept(msg) {
			return a, a.commitSearch()
		}
		return a, nil

	case filterpanel.ChangeMsg:
		a.request.Selected = a.request.Selected.With(msg.Key, msg.Value)
		a.request.Page = 0
		return a, a.runQuery()

	case filterpanel.ClearMsg:
		a.request.Selected = facet.Selected{}
		a.request.Page = 0
		a.setStatus(MsgFiltersCleared, StatusInfo)
		return a, a.runQuery()

	case filterpanel.CloseMsg:
		a.panel.SetOpen(false)
		a.focus = FocusList
		a.layout()
		return a, nil

	case queryResultMsg:
		return a, a.applyResult(msg)

	case productRenderedMsg:
		if a.view == ViewReader && a.currentProduct != nil && a.currentProduct.ID == msg.id {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
			a.loadingProduct = false
			a.clearStatus()
		}
		return a, nil

	case importDoneMsg:
		a.loading = false
		imported, products := 0, 0
		for _, r := range msg.results {
			if r.Err == nil && r.Source != nil {
				imported++
				products += r.Products
			}
		}
		a.err = wrapErr("import", msg.err)
		a.setStatus(MsgImported(imported, products), StatusSuccess)
		if imported > 0 {
			a.view = ViewProducts
			a.importInput.Reset()
			a.importInput.Blur()
			a.layout()
		}
		return a, a.runQuery()

	case refreshDoneMsg:
		a.loading = false
		a.err = wrapErr("refresh", msg.err)
		a.setStatus(MsgRefreshSummary(countErrors(msg.err), msg.docCount), StatusSuccess)
		cmds := []tea.Cmd{a.runQuery()}
		if a.view == ViewSources {
			cmds = append(cmds, a.loadSources())
		}
		return a, tea.Batch(cmds...)

	case sourcesLoadedMsg:
		a.sources = msg.sources
		items := make([]list.Item, len(msg.sources))
		for i, src := range msg.sources {
			items[i] = sourceItem{source: src}
		}
		return a, a.sourceList.SetItems(items)

	case sourceDeletedMsg:
		a.loading = false
		a.sourceToDelete = nil
		if msg.err != nil {
			a.err = wrapErr("delete", msg.err)
		} else {
			a.setStatus(MsgSourceDeleted, StatusSuccess)
		}
		a.view = ViewSources
		return a, tea.Batch(a.loadSources(), a.runQuery())

	case spinner.TickMsg:
		if !a.loading && !a.loadingProduct {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case errorMsg:
		a.loading = false
		a.loadingProduct = false
		a.err = msg.err
		return a, nil
	}

	return a, nil
}

// applyResult installs a query result. Results of superseded queries are
// dropped. The facets and the selection go back into the panel so that
// it always shows the aggregation of the committed filters.
func (a *App) applyResult(msg queryResultMsg) tea.Cmd {
	if msg.seq != a.querySeq {
		return nil
	}
	if msg.err != nil {
		a.err = wrapErr("query", msg.err)
		return nil
	}

	res := msg.result
	if len(res.Products) == 0 && res.Total > 0 && a.request.Page > 0 {
		a.request.Page = res.Pages() - 1
		return a.runQuery()
	}

	a.result = res
	items := make([]list.Item, len(res.Products))
	for i, p := range res.Products {
		items[i] = productItem{product: p}
	}
	cmd := a.productList.SetItems(items)
	a.productList.ResetSelected()
	a.productList.Title = a.listTitle()

	a.panel.SetFacets(res.Facets)
	a.panel.SetSelected(a.request.Selected)
	return cmd
}

func (a *App) listTitle() string {
	title := "› products"
	if a.request.Text != "" {
		title = fmt.Sprintf("› %q", a.request.Text)
	}
	if a.result == nil {
		return title
	}
	if a.result.Total == 0 {
		return title + " · " + MsgNoResults
	}
	return fmt.Sprintf("%s · %s · page %d/%d · %s", title, MsgResultsCount(a.result.Total),
		a.result.Page+1, a.result.Pages(), sortLabel(a.request.Sort))
}

func (a *App) contentTop() int {
	if a.view == ViewSearch {
		return searchBoxLines
	}
	return 0
}

func (a *App) contentHeight() int {
	return max(a.height-statusLines-a.contentTop(), 1)
}

func (a *App) panelWidth() int {
	w := a.config.Filters.Width
	if w > a.width/2 {
		w = a.width / 2
	}
	if w < minPanelWidth {
		w = min(minPanelWidth, a.width)
	}
	return w
}

func (a *App) panelX() int {
	return a.width - a.panelWidth()
}

// layout sizes every component for the current window and drawer state.
func (a *App) layout() {
	h := a.contentHeight()

	listWidth := a.width
	if a.panel.IsOpen() && a.panel.Options().Inline {
		listWidth = a.width - a.panelWidth()
	}
	a.productList.SetSize(listWidth, h)
	a.panel.SetOffset(a.panelX(), a.contentTop())
	a.panel.SetSize(a.panelWidth(), h)

	a.sourceList.SetSize(a.width, max(a.height-statusLines, 1))
	a.viewport.Width = a.width
	a.viewport.Height = max(a.height-statusLines, 1)

	inputWidth := a.width - 8
	if inputWidth < 10 {
		inputWidth = a.width
	}
	a.searchInput.Width = inputWidth
	a.importInput.Width = inputWidth
	a.help.Width = a.width
}

func (a *App) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch a.view {
	case ViewProducts, ViewSearch:
		press := msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft
		if a.panel.IsOpen() && (a.panel.Captured() != "" || msg.X >= a.panelX()) {
			if press {
				a.focus = FocusFilters
			}
			var cmd tea.Cmd
			a.panel, cmd = a.panel.Update(msg)
			return cmd
		}
		switch {
		case press:
			a.focus = FocusList
		case msg.Button == tea.MouseButtonWheelUp:
			a.productList.CursorUp()
		case msg.Button == tea.MouseButtonWheelDown:
			a.productList.CursorDown()
		}
		return nil

	case ViewReader:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return cmd

	case ViewSources:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			a.sourceList.CursorUp()
		case tea.MouseButtonWheelDown:
			a.sourceList.CursorDown()
		}
	}
	return nil
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

func (a *App) clearStatus() {
	a.status = ""
}

// startSpinner shows text with a spinner until the work finishes.
func (a *App) startSpinner(text string) tea.Cmd {
	a.loading = true
	a.err = nil
	a.setStatus(text, StatusInfo)
	return a.spinner.Tick
}

func (a *App) quit() tea.Cmd {
	a.cancel()
	a.searchDebounce.CancelAll()
	a.panel.Close()
	return tea.Quit
}

func (a *App) View() string {
	var content string

	switch a.view {
	case ViewProducts, ViewSearch:
		content = a.productsView()
	case ViewReader:
		if a.loadingProduct {
			content = renderCentered(a.width, a.height-statusLines, renderMuted(MsgLoadingProduct))
		} else {
			content = a.viewport.View()
		}
	case ViewImport:
		content = renderCentered(a.width, a.height-statusLines,
			lipgloss.JoinVertical(
				lipgloss.Center,
				TitleStyle.Render("› import products"),
				"",
				renderInputFrame(a.importInput.View(), a.importInput.Focused(), a.importInput.Width),
				"",
				renderHelp("Merchant feeds (RSS/Atom with g: fields), Shopify and Etsy shops"),
				renderHelp("Enter: import • Esc: cancel"),
			))
	case ViewSources:
		if len(a.sources) == 0 {
			content = renderCentered(a.width, a.height-statusLines, GetWelcomeMessage(a.keyHandler.keys.importSrc))
		} else {
			content = a.sourceList.View()
		}
	case ViewDeleteConfirm:
		content = a.deleteConfirmView()
	}

	if a.showHelp {
		content = renderCentered(a.width, a.height-statusLines, a.helpView())
	}

	content = ContentWrapper(a.width, max(a.height-statusLines, 0)).Render(content)

	separator := SeparatorStyle.Render(strings.Repeat("─", max(a.width, 0)))
	return lipgloss.JoinVertical(lipgloss.Top, content, separator, a.getCustomStatusBar())
}

func (a *App) productsView() string {
	var content string
	if a.catalog.Len() == 0 {
		content = renderCentered(a.width, a.contentHeight(), GetWelcomeMessage(a.keyHandler.keys.importSrc))
	} else {
		content = a.productList.View()
		if a.panel.IsOpen() {
			drawer := a.panel.View()
			if a.panel.Options().Inline {
				content = lipgloss.JoinHorizontal(lipgloss.Top, content, drawer)
			} else {
				content = overlay(content, drawer, a.panelX(), 0)
			}
		}
	}

	if a.view != ViewSearch {
		return content
	}
	box := renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), a.searchInput.Width)
	return lipgloss.JoinVertical(lipgloss.Top, box, content)
}

func (a *App) deleteConfirmView() string {
	name := "Unknown Source"
	if a.sourceToDelete != nil {
		name = a.sourceToDelete.Title
		if name == "" {
			name = a.sourceToDelete.URL
		}
	}

	modalWidth := (a.width * 4) / 5
	if modalWidth < 20 {
		modalWidth = max(a.width-4, 15)
	}
	name = truncateEnd(name, modalWidth-4)

	return renderCentered(a.width, a.height-statusLines,
		lipgloss.JoinVertical(
			lipgloss.Center,
			ErrorMessageStyle.Render("⚠ Delete Source"),
			"",
			lipgloss.NewStyle().Foreground(TextColor).Width(modalWidth).Align(lipgloss.Center).
				Render("Delete this source?"),
			"",
			PriceStyle.Width(modalWidth).Align(lipgloss.Center).Render(name),
			"",
			renderMuted("This removes all of its products."),
			"",
			"",
			renderHelp("Enter: confirm • Esc: cancel"),
		))
}

func (a *App) helpView() string {
	commands := a.keyHandler.GetHelpForCurrentView()
	rows := append([]string{HeaderStyle.Render("› keys"), ""}, commands...)
	if a.view == ViewProducts || a.view == ViewSearch {
		rows = append(rows, "", HeaderStyle.Render("› filters"), "",
			a.help.FullHelpView(a.panel.KeyMap().FullHelp()))
	}
	rows = append(rows, "", renderHelp("any key closes this help"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(SecondaryColor).
		Padding(1, 3).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a *App) getCustomStatusBar() string {
	bar := StatusBarStyle.Width(a.width)

	if a.err != nil {
		return bar.Render(ErrorMessageStyle.Render(truncateEnd(fmt.Sprintf("✗ %v", a.err), a.width-2)))
	}

	var left string
	switch {
	case a.status != "":
		left = a.statusKind.style().Render(a.status)
		if a.loading || a.loadingProduct {
			left = a.spinner.View() + " " + left
		}
	case a.keyHandler.filtersFocused():
		left = a.help.ShortHelpView(a.panel.KeyMap().ShortHelp())
	default:
		left = strings.Join(a.keyHandler.GetHelpForCurrentView(), " • ")
	}

	if a.view != ViewProducts && a.view != ViewSearch {
		return bar.Render(left)
	}

	room := a.width - 2 - lipgloss.Width(left) - 3
	link := query.String(a.request)
	if room < 12 || link == "" {
		return bar.Render(left)
	}
	right := renderMuted(truncateMiddle("?"+link, room))
	gap := max(a.width-2-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return bar.Render(left + strings.Repeat(" ", gap) + right)
}

type productItem struct {
	product *storage.Product
}

func (i productItem) Title() string {
	if !i.product.InStock {
		return SoldOutStyle.Render(i.product.Title) + renderMuted(" (sold out)")
	}
	return i.product.Title
}

func (i productItem) Description() string {
	p := i.product
	parts := []string{PriceStyle.Render(formatPrice(p.Price))}
	if p.Brand != "" {
		parts = append(parts, p.Brand)
	}
	if p.Rating > 0 {
		parts = append(parts, stars(p.Rating))
	}
	if p.Store != "" {
		parts = append(parts, p.Store)
	}
	return renderMuted(strings.Join(parts, " • "))
}

func (i productItem) FilterValue() string { return i.product.Title }

type sourceItem struct {
	source *storage.Source
}

func (i sourceItem) Title() string {
	if i.source.Title != "" {
		return i.source.Title
	}
	return i.source.URL
}

func (i sourceItem) Description() string {
	desc := truncateMiddle(i.source.URL, 60)
	if !i.source.LastFetched.IsZero() {
		desc += " • fetched " + i.source.LastFetched.Format("Jan 2, 15:04")
	}
	return renderMuted(desc)
}

func (i sourceItem) FilterValue() string { return i.source.Title }

type queryResultMsg struct {
	seq    int
	result *catalog.Result
	err    error
}

type productRenderedMsg struct {
	id      string
	content string
}

type importDoneMsg struct {
	results []feed.Result
	err     error
}

type refreshDoneMsg struct {
	err      error
	docCount int
}

type sourcesLoadedMsg struct {
	sources []*storage.Source
}

type sourceDeletedMsg struct {
	err error
}

type errorMsg struct {
	err error
}
