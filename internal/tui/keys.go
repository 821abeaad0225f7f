package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	MoreCols  key.Binding
	FewerCols key.Binding
	MoreRows  key.Binding
	FewerRows key.Binding
	Reset     key.Binding
	Crop      key.Binding
	PDF       key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		MoreCols:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "more columns")),
		FewerCols: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "fewer columns")),
		MoreRows:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "more rows")),
		FewerRows: key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "fewer rows")),
		Reset:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset grid")),
		Crop:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "crop to zip")),
		PDF:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "contact sheet")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.FewerCols, k.MoreCols, k.Crop, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.FewerCols, k.MoreCols, k.FewerRows, k.MoreRows},
		{k.Reset, k.Crop, k.PDF},
		{k.Help, k.Quit},
	}
}
