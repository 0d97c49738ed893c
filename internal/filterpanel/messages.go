package filterpanel

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pders01/shelf/internal/facet"
)

// ChangeMsg asks the owner to replace the selection for Key.
type ChangeMsg struct {
	Key   string
	Value facet.Selection
}

// ClearMsg asks the owner to drop every selection.
type ClearMsg struct{}

// CloseMsg asks the owner to hide the drawer.
type CloseMsg struct{}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
