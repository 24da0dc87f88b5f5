// Package settings is the settings page: a self-contained Bubble Tea
// component with its own messages. The shell forwards those messages only
// while this page is active.
package settings

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smacontrol/sma/internal/model"
	"github.com/smacontrol/sma/internal/route"
)

// Themes offered as completions for the navbar theme field.
var Themes = []string{"link", "primary", "info", "success", "warning", "danger", "dark"}

type field int

const (
	fieldTheme field = iota
	fieldCompact
	fieldCount
)

type loadedMsg struct {
	prefs model.Preferences
	err   error
}

type savedMsg struct {
	prefs model.Preferences
	err   error
}

// KeyMap holds the settings page bindings.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Save   key.Binding
	Cancel key.Binding
}

// DefaultKeyMap returns the settings page bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "edit/toggle")),
		Save:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel edit")),
	}
}

// Model is the settings page state.
type Model struct {
	store   model.PreferencesStore
	keys    KeyMap
	prefs   model.Preferences
	theme   textinput.Model
	cursor  field
	editing bool
	loaded  bool
	saving  bool
	dirty   bool
	status  string
}

// New creates the page and schedules loading the stored preferences.
func New(store model.PreferencesStore) (Model, tea.Cmd) {
	ti := textinput.New()
	ti.Placeholder = model.DefaultTheme
	ti.CharLimit = 32
	ti.ShowSuggestions = true
	ti.SetSuggestions(Themes)

	m := Model{
		store: store,
		keys:  DefaultKeyMap(),
		prefs: Defaults(),
		theme: ti,
	}
	return m, m.loadCmd()
}

// URL links to the settings page under base.
func URL(base *url.URL) *url.URL {
	return route.Links{Base: base}.Settings()
}

// Preferences returns the preferences currently shown.
func (m Model) Preferences() model.Preferences { return m.prefs }

// Loaded reports whether the stored preferences have arrived.
func (m Model) Loaded() bool { return m.loaded }

// Editing reports whether a text field has focus, so the shell can stop
// interpreting single-letter shortcuts.
func (m Model) Editing() bool { return m.editing }

// Dirty reports unsaved edits.
func (m Model) Dirty() bool { return m.dirty }

// Status returns the last load/save outcome shown under the form.
func (m Model) Status() string { return m.status }

func (m Model) loadCmd() tea.Cmd {
	store := m.store
	if store == nil {
		return func() tea.Msg { return loadedMsg{prefs: Defaults()} }
	}
	return func() tea.Msg {
		p, err := store.Load()
		return loadedMsg{prefs: p, err: err}
	}
}

func (m Model) saveCmd() tea.Cmd {
	store := m.store
	prefs := m.prefs
	if store == nil {
		return func() tea.Msg { return savedMsg{prefs: prefs} }
	}
	return func() tea.Msg {
		return savedMsg{prefs: prefs, err: store.Save(prefs)}
	}
}

// Update handles the page's own messages and forwarded key presses.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.status = "could not load preferences: " + msg.err.Error()
		}
		if !m.dirty {
			m.prefs = msg.prefs
		}
		return m, nil

	case savedMsg:
		m.saving = false
		if msg.err != nil {
			m.status = "save failed: " + msg.err.Error()
			return m, nil
		}
		if msg.prefs == m.prefs {
			m.dirty = false
		}
		m.status = "saved"
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}

	if m.editing {
		var cmd tea.Cmd
		m.theme, cmd = m.theme.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.editing = false
		m.theme.Blur()
		return m, nil
	case msg.Type == tea.KeyEnter:
		m.editing = false
		m.theme.Blur()
		if v := strings.TrimSpace(m.theme.Value()); v != "" && v != m.prefs.Theme {
			m.prefs.Theme = v
			m.dirty = true
			m.status = ""
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.theme, cmd = m.theme.Update(msg)
	return m, cmd
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < fieldCount-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select):
		switch m.cursor {
		case fieldTheme:
			m.editing = true
			m.theme.SetValue(m.prefs.Theme)
			m.theme.CursorEnd()
			return m, m.theme.Focus()
		case fieldCompact:
			m.prefs.Compact = !m.prefs.Compact
			m.dirty = true
			m.status = ""
		}
	case key.Matches(msg, m.keys.Save):
		if m.saving {
			return m, nil
		}
		m.saving = true
		m.status = "saving..."
		return m, m.saveCmd()
	}
	return m, nil
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3273DC"))
	labelStyle    = lipgloss.NewStyle().Width(16)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#3273DC"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7A7A7A"))
)

// View renders the page. user is the signed-in user, if any.
func (m Model) View(width int, user *model.User) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Settings"))
	b.WriteString("\n\n")

	if user != nil {
		b.WriteString(labelStyle.Render("Nickname") + user.Nickname + "\n")
		b.WriteString(labelStyle.Render("Name") + user.Name + "\n")
		b.WriteString(labelStyle.Render("Picture") + user.Picture + "\n")
		b.WriteString(labelStyle.Render("Updated") + user.UpdatedAt + "\n")
		b.WriteString(labelStyle.Render("Subject") + user.Sub + "\n\n")
	} else {
		b.WriteString(mutedStyle.Render("Not signed in. Log in to see your profile.") + "\n\n")
	}

	if !m.loaded {
		b.WriteString(mutedStyle.Render("Loading preferences...") + "\n")
		return lipgloss.NewStyle().MaxWidth(width).Render(b.String())
	}

	theme := m.prefs.Theme
	if m.editing {
		theme = m.theme.View()
	}
	compact := "off"
	if m.prefs.Compact {
		compact = "on"
	}

	rows := []string{
		labelStyle.Render("Navbar theme") + theme,
		labelStyle.Render("Compact") + compact,
	}
	for i, row := range rows {
		if field(i) == m.cursor && !m.editing {
			row = selectedStyle.Render(row)
		}
		b.WriteString(row + "\n")
	}

	footer := "enter: edit/toggle • ctrl+s: save"
	if m.dirty {
		footer += " • unsaved changes"
	}
	if m.status != "" {
		footer = fmt.Sprintf("%s • %s", footer, m.status)
	}
	b.WriteString("\n" + mutedStyle.Render(footer))

	return lipgloss.NewStyle().MaxWidth(width).Render(b.String())
}
