package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	left      key.Binding
	right     key.Binding
	enter     key.Binding
	back      key.Binding
	toggle    key.Binding
	favorite  key.Binding
	filters   key.Binding
	favorites key.Binding
	add       key.Binding
	remove    key.Binding
	open      key.Binding
	reset     key.Binding
	retry     key.Binding
	yes       key.Binding
	no        key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "decrease")),
		right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "increase")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		favorite:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "♥ favorite")),
		filters:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filters")),
		favorites: key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "favorites")),
		add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to favorites")),
		remove:    key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "remove")),
		open:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open in browser")),
		reset:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reset")),
		retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		yes:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:        key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.favorite, k.filters, k.favorites, k.retry},
		{k.add, k.open, k.yes, k.no},
		{k.quit},
	}
}
