package filterpanel

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the panel bindings. It satisfies help.KeyMap.
type KeyMap struct {
	Up           key.Binding
	Down         key.Binding
	Toggle       key.Binding
	Left         key.Binding
	Right        key.Binding
	PageLeft     key.Binding
	PageRight    key.Binding
	SwitchHandle key.Binding
	Reset        key.Binding
	Close        key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("space", "toggle"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "-1"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "+1"),
		),
		PageLeft: key.NewBinding(
			key.WithKeys("shift+left", "H"),
			key.WithHelp("H", "-10%"),
		),
		PageRight: key.NewBinding(
			key.WithKeys("shift+right", "L"),
			key.WithHelp("L", "+10%"),
		),
		SwitchHandle: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "min/max"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Left, k.Right, k.SwitchHandle, k.Reset, k.Close}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle},
		{k.Left, k.Right, k.PageLeft, k.PageRight, k.SwitchHandle},
		{k.Reset, k.Close},
	}
}
