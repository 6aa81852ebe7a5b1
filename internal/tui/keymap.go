package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit         key.Binding
	reload       key.Binding
	toggleHelp   key.Binding
	moveLeft     key.Binding
	moveRight    key.Binding
	moveUp       key.Binding
	moveDown     key.Binding
	toggleSelect key.Binding
	grab         key.Binding
	drop         key.Binding
	cancel       key.Binding
	addTask      key.Binding
	deleteTask   key.Binding
	taskInfo     key.Binding
	copyID       key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:     key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:    key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "task up")),
		moveDown:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "task down")),
		toggleSelect: key.NewBinding(key.WithKeys("space", " "), key.WithHelp("space", "select")),
		grab:         key.NewBinding(key.WithKeys("g", "m"), key.WithHelp("g", "grab")),
		drop:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop")),
		cancel:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		addTask:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		deleteTask:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete task")),
		taskInfo:     key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "task info")),
		copyID:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.toggleSelect, k.grab, k.drop, k.cancel, k.addTask, k.taskInfo, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown},
		{k.toggleSelect, k.grab, k.drop, k.cancel},
		{k.addTask, k.deleteTask, k.taskInfo, k.copyID, k.reload, k.toggleHelp, k.quit},
	}
}
