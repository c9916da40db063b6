package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NextTab key.Binding
	PrevTab key.Binding
	Save    key.Binding
	Select  key.Binding
	Start   key.Binding
	Stop    key.Binding
	Delete  key.Binding
	Open    key.Binding
	Refresh key.Binding
	Toggle  key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Save, k.Start, k.Stop, k.Open, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextTab, k.PrevTab, k.Quit},
		{k.Save, k.Select, k.Start, k.Stop, k.Delete},
		{k.Open, k.Refresh, k.Toggle},
	}
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextTab: key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab", "next tab")),
		PrevTab: key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab", "prev tab")),
		Save:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save template")),
		Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Start:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "start auto")),
		Stop:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop auto")),
		Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete template")),
		Open:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open all packs")),
		Refresh: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fetch club")),
		Toggle:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "lock/unlock")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
