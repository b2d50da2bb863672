package ui

import "github.com/charmbracelet/bubbles/key"

// Key bindings. Letter keys only apply while the path input is not focused.
var keys = struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Enter     key.Binding
	Start     key.Binding
	Remove    key.Binding
	Edit      key.Binding
	Download  key.Binding
	Preview   key.Binding
	New       key.Binding
	Retry     key.Binding
	Debug     key.Binding
}{
	Quit:      key.NewBinding(key.WithKeys("q")),
	ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	Enter:     key.NewBinding(key.WithKeys("enter")),
	Start:     key.NewBinding(key.WithKeys("a")),
	Remove:    key.NewBinding(key.WithKeys("x")),
	Edit:      key.NewBinding(key.WithKeys("e", "esc")),
	Download:  key.NewBinding(key.WithKeys("d")),
	Preview:   key.NewBinding(key.WithKeys("p")),
	New:       key.NewBinding(key.WithKeys("n")),
	Retry:     key.NewBinding(key.WithKeys("r")),
	Debug:     key.NewBinding(key.WithKeys("D")),
}
