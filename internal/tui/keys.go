package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Delete     key.Binding
	DeleteSafe key.Binding
	Open       key.Binding
	Sort       key.Binding
	Filter     key.Binding
	Refresh    key.Binding
	NewScan    key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Delete: key.NewBinding(
			key.WithKeys("enter", "d"),
			key.WithHelp("enter/d", "delete"),
		),
		DeleteSafe: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete all safe"),
		),
		Open: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "show in folder"),
		),
		Sort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sort"),
		),
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "category"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload list"),
		),
		NewScan: key.NewBinding(
			key.WithKeys("n", "/"),
			key.WithHelp("n", "new scan"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "h"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Delete, k.DeleteSafe, k.Open, k.Sort, k.Filter, k.NewScan, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Delete, k.DeleteSafe, k.Open}, {k.Sort, k.Filter, k.Refresh, k.NewScan, k.Help, k.Quit}}
}

// formKeyMap is active while the scan form has focus.
type formKeyMap struct {
	Submit   key.Binding
	Next     key.Binding
	OnlyTemp key.Binding
	Back     key.Binding
	Quit     key.Binding
}

func newFormKeyMap() formKeyMap {
	return formKeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "scan"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "next field"),
		),
		OnlyTemp: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "only temp"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "results"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

func (k formKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Next, k.OnlyTemp, k.Back, k.Quit}
}

func (k formKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
