package tui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pders01/shelf/internal/catalog"
	"github.com/pders01/shelf/internal/debuglog"
	"github.com/pders01/shelf/internal/storage"
)

var sortOrder = []string{
	catalog.SortRelevance,
	catalog.SortTitle,
	catalog.SortPriceAsc,
	catalog.SortPriceDesc,
	catalog.SortRating,
}

var priceFormat = message.NewPrinter(language.English)

// runQuery executes the committed request off the update loop. Every
// call bumps the sequence so that only the newest answer is applied.
func (a *App) runQuery() tea.Cmd {
	a.querySeq++
	seq := a.querySeq
	req := a.request
	req.Selected = req.Selected.Clone()
	return func() tea.Msg {
		res, err := a.catalog.Query(req)
		return queryResultMsg{seq: seq, result: res, err: err}
	}
}

// commitSearch copies the search box into the request.
func (a *App) commitSearch() tea.Cmd {
	text := sanitizeSearchInput(a.searchInput.Value())
	if text == a.request.Text {
		return nil
	}
	switch {
	case a.request.Text == "" && text != "":
		a.request.Sort = catalog.SortRelevance
	case text == "" && a.request.Sort == catalog.SortRelevance:
		a.request.Sort = a.config.Catalog.DefaultSort
	}
	a.request.Text = text
	a.request.Page = 0
	return a.runQuery()
}

func (a *App) cycleSort() tea.Cmd {
	i := slices.Index(sortOrder, a.request.Sort)
	a.request.Sort = sortOrder[(i+1)%len(sortOrder)]
	a.request.Page = 0
	return a.runQuery()
}

// turnPage moves by delta pages. The result handler clamps overshoot.
func (a *App) turnPage(delta int) tea.Cmd {
	page := a.request.Page + delta
	if page < 0 {
		return nil
	}
	if a.result != nil && page >= a.result.Pages() {
		return nil
	}
	a.request.Page = page
	return a.runQuery()
}

func sortLabel(order string) string {
	switch order {
	case catalog.SortRelevance:
		return "best match"
	case catalog.SortPriceAsc:
		return "price ↑"
	case catalog.SortPriceDesc:
		return "price ↓"
	case catalog.SortRating:
		return "top rated"
	case catalog.SortTitle:
		return "a-z"
	}
	return "a-z"
}

func formatPrice(price int) string {
	return priceFormat.Sprintf("$%d", price)
}

func stars(rating int) string {
	rating = max(0, min(rating, 5))
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

func (a *App) renderProduct(p *storage.Product) tea.Cmd {
	return func() tea.Msg {
		var content strings.Builder
		fmt.Fprintf(&content, "# %s\n\n", p.Title)

		stock := "in stock"
		if !p.InStock {
			stock = "~~sold out~~"
		}
		fmt.Fprintf(&content, "**%s** · %s", formatPrice(p.Price), stock)
		if p.Rating > 0 {
			fmt.Fprintf(&content, " · %s", stars(p.Rating))
		}
		content.WriteString("\n\n")

		var facts []string
		if p.Brand != "" {
			facts = append(facts, "Brand: "+p.Brand)
		}
		if p.Category != "" {
			facts = append(facts, "Category: "+p.Category)
		}
		if p.Store != "" {
			facts = append(facts, "Store: "+p.Store)
		}
		if p.SKU != "" {
			facts = append(facts, "SKU: `"+p.SKU+"`")
		}
		for _, f := range facts {
			fmt.Fprintf(&content, "- %s\n", f)
		}
		if len(facts) > 0 {
			content.WriteString("\n")
		}

		if p.URL != "" {
			fmt.Fprintf(&content, "[View in store](%s)\n\n", p.URL)
		}
		if p.ImageURL != "" {
			fmt.Fprintf(&content, "Image: %s\n\n", p.ImageURL)
		}

		content.WriteString("---\n\n")
		content.WriteString(a.descriptionMarkdown(p.Description))
		content.WriteString("\n\n")

		writeTable(&content, "Attributes", p.Attributes)
		writeTable(&content, "Specifications", p.Specs)

		r, err := a.getRenderer()
		if err != nil {
			return productRenderedMsg{id: p.ID, content: "Error initializing renderer: " + err.Error()}
		}

		rendered, err := r.Render(content.String())
		if err != nil {
			return productRenderedMsg{id: p.ID, content: fmt.Sprintf("# Error\n\nFailed to render product: %s\n\nPress Escape to go back.", err.Error())}
		}
		return productRenderedMsg{id: p.ID, content: rendered}
	}
}

// descriptionMarkdown converts merchant HTML to markdown and trims it to
// the configured length. Plain text passes through unchanged.
func (a *App) descriptionMarkdown(desc string) string {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "*No description.*"
	}
	if strings.Contains(desc, "<") {
		md, err := htmltomarkdown.ConvertString(desc)
		if err != nil {
			debuglog.Debugf("description conversion: %v", err)
		} else {
			desc = md
		}
	}
	if limit := a.config.UI.Detail.MaxDescriptionLength; limit > 0 {
		if r := []rune(desc); len(r) > limit {
			desc = string(r[:limit]) + "…"
		}
	}
	return desc
}

func writeTable(b *strings.Builder, title string, rows map[string]string) {
	if len(rows) == 0 {
		return
	}
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fmt.Fprintf(b, "## %s\n\n| | |\n|---|---|\n", title)
	for _, k := range keys {
		fmt.Fprintf(b, "| %s | %s |\n", escapeCell(k), escapeCell(rows[k]))
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func (a *App) importSources(raw string) tea.Cmd {
	urls := strings.Fields(raw)
	if len(urls) == 0 {
		return nil
	}
	ctx := a.ctx
	return func() tea.Msg {
		results, err := a.manager.Import(ctx, urls...)
		return importDoneMsg{results: results, err: err}
	}
}

func (a *App) refreshAll() tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		err := a.manager.Refresh(ctx)
		count, countErr := a.catalog.DocCount()
		if countErr != nil {
			count = -1
		}
		return refreshDoneMsg{err: err, docCount: count}
	}
}

func (a *App) loadSources() tea.Cmd {
	return func() tea.Msg {
		sources, err := a.store.GetAllSources()
		if err != nil {
			return errorMsg{err: wrapErr("load sources", err)}
		}
		return sourcesLoadedMsg{sources: sources}
	}
}

func (a *App) deleteSource(sourceID string) tea.Cmd {
	return func() tea.Msg {
		err := retryOperation(func() error { return a.manager.DeleteSource(sourceID) })
		return sourceDeletedMsg{err: err}
	}
}

func (a *App) openURL(raw, what string) tea.Cmd {
	if raw == "" {
		a.setStatus("No "+what+" link", StatusWarn)
		return nil
	}
	a.setStatus(MsgOpening(what), StatusInfo)
	return func() tea.Msg {
		if err := a.launcher.Open(raw); err != nil {
			return errorMsg{err: wrapErr("open", err)}
		}
		return nil
	}
}

// retryOperation retries a database operation up to 3 times with exponential backoff
func retryOperation(operation func() error) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := operation(); err != nil {
			lastErr = err
			if i < maxRetries-1 {
				time.Sleep(baseDelay * time.Duration(1<<i))
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}
