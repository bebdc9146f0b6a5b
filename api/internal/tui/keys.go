package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Select   key.Binding
	Generate key.Binding
	Reset    key.Binding
	Style    key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select file")),
		Generate: key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "generate")),
		Reset:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reset")),
		Style:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next style")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

func (k keyMap) help(styles bool) []key.Binding {
	out := []key.Binding{k.Select, k.Generate, k.Reset}
	if styles {
		out = append(out, k.Style)
	}
	return append(out, k.Quit)
}
