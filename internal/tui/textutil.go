package tui

import "github.com/mattn/go-runewidth"

// truncateEnd shortens s to at most limit display columns, appending an
// ellipsis if truncation occurs.
func truncateEnd(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	return runewidth.Truncate(s, limit, "…")
}

// truncateMiddle keeps both ends of s around a single ellipsis. Useful
// for URLs and query strings where both ends carry meaning.
func truncateMiddle(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	keep := limit - 1
	left := keep / 2
	right := keep - left

	r := []rune(s)
	head := runewidth.Truncate(s, left, "")
	tail := ""
	for i := len(r) - 1; i >= 0; i-- {
		next := string(r[i:])
		if runewidth.StringWidth(next) > right {
			break
		}
		tail = next
	}
	return head + "…" + tail
}

