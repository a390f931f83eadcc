package gridpicker

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubadmin/internal/inline"
)

func newTestModel(current string) Model {
	id := inline.CellID{EntityID: 3, Field: "status"}
	options := []inline.Option{
		{Value: "active", Label: "Active"},
		{Value: "inactive", Label: "Inactive"},
		{Value: "pending", Label: "Pending"},
	}
	labels := inline.NewLabels(map[string]map[string]inline.Badge{
		"status": {"active": {Label: "Active", Color: "#198754"}},
	}, inline.Messages{})
	return New("Status of member 3", "status", inline.NewChoiceGrid(id, options, current, "Cancel"), labels)
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestPicker_ArrowsThenEnter(t *testing.T) {
	m := newTestModel("active")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Nil(t, cmd)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 2, m.grid.Focus())

	_, ok := m.Result()
	assert.False(t, ok, "no result before a choice")

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	value, ok := m.Result()
	assert.True(t, ok)
	assert.Equal(t, "pending", value)
}

func TestPicker_WrapsAndVimKeys(t *testing.T) {
	m := newTestModel("active")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	assert.Equal(t, 2, m.grid.Focus(), "left from the first button wraps to the last")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	assert.Equal(t, 0, m.grid.Focus())

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	value, ok := m.Result()
	assert.True(t, ok)
	assert.Equal(t, "active", value)
}

func TestPicker_Cancel(t *testing.T) {
	m := newTestModel("inactive")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)

	_, ok := m.Result()
	assert.False(t, ok)
	assert.Equal(t, "inactive", m.grid.Value(), "cancel leaves the hidden value untouched")
}

func TestPicker_IgnoresOtherInput(t *testing.T) {
	m := newTestModel("active")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	assert.Nil(t, cmd)
	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	assert.Nil(t, cmd)
	next, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Nil(t, cmd)
	assert.Equal(t, 0, next.(Model).grid.Focus())
}

func TestPicker_View(t *testing.T) {
	m := newTestModel("active")
	view := m.View()
	assert.Contains(t, view, "Status of member 3")
	for _, label := range []string{"Active", "Inactive", "Pending"} {
		assert.Contains(t, view, label)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.View(), "a finished picker clears its output")
}
