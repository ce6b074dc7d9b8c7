package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	up, down     key.Binding
	toggle       key.Binding
	start        key.Binding
	raise, lower key.Binding

	dueToday, dueTomorrow, dueWeekend, dueNextWeek, dueNone key.Binding

	add, remove key.Binding
	filter      key.Binding
	reload      key.Binding
	quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑↓/jk", "nav")),
		down:   key.NewBinding(key.WithKeys("j", "down")),
		toggle: key.NewBinding(key.WithKeys(" ", "space", "x"), key.WithHelp("x", "done")),
		start:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "start")),
		raise:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "priority")),
		lower:  key.NewBinding(key.WithKeys("-")),

		dueToday:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t/T/w/n/0", "due")),
		dueTomorrow: key.NewBinding(key.WithKeys("T")),
		dueWeekend:  key.NewBinding(key.WithKeys("w")),
		dueNextWeek: key.NewBinding(key.WithKeys("n")),
		dueNone:     key.NewBinding(key.WithKeys("0")),

		add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		remove: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		filter: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// shortHelp lists the bindings shown in the status bar.
func (k keyMap) shortHelp() []key.Binding {
	return []key.Binding{k.up, k.toggle, k.start, k.raise, k.dueToday, k.add, k.remove, k.filter, k.reload, k.quit}
}
