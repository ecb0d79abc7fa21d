package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit       key.Binding
	Help       key.Binding
	Cancel     key.Binding
	Search     key.Binding
	Batch      key.Binding
	Delete     key.Binding
	Unpin      key.Binding
	Fit        key.Binding
	ZoomIn     key.Binding
	ZoomOut    key.Binding
	PanLeft    key.Binding
	PanRight   key.Binding
	PanUp      key.Binding
	PanDown    key.Binding
	Copy       key.Binding
	Type       key.Binding
	WeightUp   key.Binding
	WeightDown key.Binding
	Reload     key.Binding
	Confirm    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Batch: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "batch mode"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "delete"),
		),
		Unpin: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "unpin"),
		),
		Fit: key.NewBinding(
			key.WithKeys("f", "0"),
			key.WithHelp("f", "fit"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+/-", "zoom"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-", "_"),
		),
		PanLeft: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("hjkl", "pan"),
		),
		PanRight: key.NewBinding(
			key.WithKeys("l", "right"),
		),
		PanUp: key.NewBinding(
			key.WithKeys("k", "up"),
		),
		PanDown: key.NewBinding(
			key.WithKeys("j", "down"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy name"),
		),
		Type: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "change type"),
		),
		WeightUp: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("[/]", "weight"),
		),
		WeightDown: key.NewBinding(
			key.WithKeys("["),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Batch, k.Fit, k.ZoomIn, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.Cancel, k.Copy, k.Type},
		{k.Batch, k.Delete, k.Unpin},
		{k.Fit, k.ZoomIn, k.PanLeft},
		{k.WeightUp, k.Reload, k.Help, k.Quit},
	}
}
