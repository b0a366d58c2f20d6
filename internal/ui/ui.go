// Package ui provides the terminal front end: an interactive picker
// built on bubbletea and plain-text tables rendered with lipgloss.
// Item text is shown as-is; nothing from the network reaches a shell.
package ui

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrCancelled is returned when the user leaves the picker without
// choosing.
var ErrCancelled = errors.New("selection cancelled")

// Interactive reports whether both stdin and stdout are terminals.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Item is one pickable line.
type Item struct {
	Label  string
	Detail string
}

type listItem struct {
	index int
	Item
}

func (i listItem) Title() string       { return i.Label }
func (i listItem) Description() string { return i.Detail }
func (i listItem) FilterValue() string { return i.Label }

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

// picker is the bubbletea model behind Select.
type picker struct {
	list     list.Model
	chosen   int
	quitting bool
}

func newPicker(prompt string, items []Item) picker {
	li := make([]list.Item, len(items))
	for i, it := range items {
		li[i] = listItem{index: i, Item: it}
	}
	l := list.New(li, list.NewDefaultDelegate(), 80, 20)
	l.Title = prompt
	l.Styles.Title = titleStyle
	return picker{list: l, chosen: -1}
}

func (p picker) Init() tea.Cmd { return nil }

func (p picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.list.SetSize(msg.Width, msg.Height)
		return p, nil
	case tea.KeyMsg:
		// keys belong to the filter input while it is open
		if p.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if it, ok := p.list.SelectedItem().(listItem); ok {
				p.chosen = it.index
			}
			p.quitting = true
			return p, tea.Quit
		case "ctrl+c", "esc", "q":
			p.quitting = true
			return p, tea.Quit
		}
	}

	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

func (p picker) View() string {
	if p.quitting {
		return ""
	}
	return p.list.View()
}

// Select shows items in a filterable list and returns the chosen index.
func Select(prompt string, items []Item) (int, error) {
	return run(prompt, items, os.Stdin, os.Stdout)
}

func run(prompt string, items []Item, in io.Reader, out io.Writer) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("no items to select from")
	}

	prog := tea.NewProgram(newPicker(prompt, items),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)
	final, err := prog.Run()
	if err != nil {
		return -1, fmt.Errorf("running picker: %w", err)
	}

	p, ok := final.(picker)
	if !ok || p.chosen < 0 {
		return -1, ErrCancelled
	}
	return p.chosen, nil
}
