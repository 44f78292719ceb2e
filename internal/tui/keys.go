package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Run        key.Binding
	Toggle     key.Binding
	HourUp     key.Binding
	HourDown   key.Binding
	MinuteUp   key.Binding
	MinuteDown key.Binding
	Save       key.Binding
	Clear      key.Binding
	Dismiss    key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Run: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "sign in now"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "start/stop schedule"),
	),
	HourUp: key.NewBinding(
		key.WithKeys("h"),
		key.WithHelp("h/H", "hour ±"),
	),
	HourDown: key.NewBinding(
		key.WithKeys("H"),
	),
	MinuteUp: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m/M", "minute ±"),
	),
	MinuteDown: key.NewBinding(
		key.WithKeys("M"),
	),
	Save: key.NewBinding(
		key.WithKeys("w"),
		key.WithHelp("w", "save time"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear log"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("enter", "esc"),
		key.WithHelp("enter", "dismiss"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Toggle, k.HourUp, k.MinuteUp, k.Save, k.Clear, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Run, k.Toggle, k.Save},
		{k.HourUp, k.MinuteUp, k.Clear},
		{k.Dismiss, k.Quit},
	}
}

// dialogKeys is the help shown while a result dialog is open.
type dialogKeys struct{}

func (dialogKeys) ShortHelp() []key.Binding { return []key.Binding{keys.Dismiss, keys.Quit} }

func (dialogKeys) FullHelp() [][]key.Binding { return [][]key.Binding{{keys.Dismiss, keys.Quit}} }
