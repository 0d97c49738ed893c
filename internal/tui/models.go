package tui

type View int

const (
	ViewProducts View = iota
	ViewSearch
	ViewReader
	ViewImport
	ViewSources
	ViewDeleteConfirm
)

// Focus is the part of the products view receiving keys.
type Focus int

const (
	FocusList Focus = iota
	FocusFilters
)
