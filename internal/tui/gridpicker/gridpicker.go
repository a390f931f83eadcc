// Package gridpicker is a terminal rendition of the inline choice grid: one
// button per allowed value, arrow keys to move, Enter or Space to choose.
package gridpicker

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"clubadmin/internal/inline"
)

// KeyMap defines the picker's key bindings.
type KeyMap struct {
	Prev   key.Binding
	Next   key.Binding
	Choose key.Binding
	Cancel key.Binding
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Choose, k.Cancel}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Prev, k.Next}, {k.Choose, k.Cancel}}
}

// DefaultKeyMap returns the arrow/vim bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Prev: key.NewBinding(
			key.WithKeys("left", "up", "h", "k", "shift+tab"),
			key.WithHelp("←/h", "previous"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "down", "l", "j", "tab"),
			key.WithHelp("→/l", "next"),
		),
		Choose: key.NewBinding(
			key.WithKeys("enter", " ", "space"),
			key.WithHelp("enter/space", "choose"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "q", "ctrl+c"),
			key.WithHelp("esc/q", "cancel"),
		),
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	buttonStyle = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder())
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(inline.NeutralColor))
)

// Model wraps an inline.ChoiceGrid. Key presses are translated into the
// grid's own keys so focus and commit rules stay the grid's.
type Model struct {
	title  string
	field  string
	grid   *inline.ChoiceGrid
	labels inline.Labels
	keys   KeyMap
	help   help.Model

	chosen    string
	done      bool
	cancelled bool
}

// New builds a picker for grid. field selects the badge colors in labels.
func New(title, field string, grid *inline.ChoiceGrid, labels inline.Labels) Model {
	return Model{
		title:  title,
		field:  field,
		grid:   grid,
		labels: labels,
		keys:   DefaultKeyMap(),
		help:   help.New(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.done {
		return m, nil
	}

	var k inline.Key
	switch {
	case key.Matches(keyMsg, m.keys.Prev):
		k = inline.KeyLeft
	case key.Matches(keyMsg, m.keys.Next):
		k = inline.KeyRight
	case key.Matches(keyMsg, m.keys.Choose):
		k = inline.KeyEnter
	case key.Matches(keyMsg, m.keys.Cancel):
		k = inline.KeyEsc
	default:
		return m, nil
	}

	switch m.grid.HandleKey(k) {
	case inline.ActionCommit:
		m.chosen = m.grid.Value()
		m.done = true
		return m, tea.Quit
	case inline.ActionCancel:
		m.cancelled = true
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")

	buttons := make([]string, 0, len(m.grid.Options()))
	for i, o := range m.grid.Options() {
		style := buttonStyle.BorderForeground(lipgloss.Color(inline.NeutralColor))
		if badge, ok := m.labels.Badge(m.field, o.Value); ok && badge.Color != "" {
			style = style.Foreground(lipgloss.Color(badge.Color))
		}
		if m.grid.Active(i) {
			style = style.Bold(true)
		}
		if i == m.grid.Focus() {
			style = style.BorderForeground(lipgloss.Color("#0d6efd")).Reverse(true)
		}
		buttons = append(buttons, style.Render(o.Label))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.help.View(m.keys)))
	b.WriteString("\n")
	return b.String()
}

// Result returns the chosen value, or ok=false when the picker was cancelled
// or has not finished.
func (m Model) Result() (value string, ok bool) {
	if !m.done || m.cancelled {
		return "", false
	}
	return m.chosen, true
}

// Run shows the picker on the terminal until a value is chosen or the user
// cancels.
func Run(title, field string, grid *inline.ChoiceGrid, labels inline.Labels, opts ...tea.ProgramOption) (string, bool, error) {
	final, err := tea.NewProgram(New(title, field, grid, labels), opts...).Run()
	if err != nil {
		return "", false, err
	}
	value, ok := final.(Model).Result()
	return value, ok, nil
}
