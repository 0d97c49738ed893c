package tui

import (
	"fmt"
	"strings"
)

// Canonical short status messages used across the app.
const (
	MsgRefreshing     = "Refreshing…"
	MsgImporting      = "Importing…"
	MsgDeleting       = "Deleting…"
	MsgLoadingProduct = "Loading product…"
	MsgNoResults      = "No products match"
	MsgSourceDeleted  = "Source deleted"
	MsgFiltersCleared = "Filters cleared"
)

func MsgImported(sources, products int) string {
	return fmt.Sprintf("Imported %s (%s)", plural(sources, "source"), plural(products, "product"))
}

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgRefreshSummary(errors, docCount int) string {
	base := "Refreshed all sources"
	if errors > 0 {
		base += fmt.Sprintf(" • %s", plural(errors, "error"))
	}
	if docCount >= 0 {
		base += fmt.Sprintf(" • idx: %d docs", docCount)
	}
	return base
}

func MsgOpening(what string) string {
	return "Opening " + strings.TrimSpace(what) + "…"
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
