package tui

import (
	"net/url"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smacontrol/sma/internal/route"
	"github.com/smacontrol/sma/internal/settings"
)

// Page is the active routed view. Settings is meaningful only when Kind is
// route.KindSettings.
type Page struct {
	Kind     route.Kind
	Settings settings.Model
}

// initPage selects the page for u and initializes its substate. Commands
// scheduled by the settings page are wrapped in SettingsMsg.
func (m *Model) initPage(u *url.URL) (Page, tea.Cmd) {
	kind := route.Match(m.baseURL, u)
	switch kind {
	case route.KindSettings:
		s, cmd := settings.New(m.preferences)
		return Page{Kind: kind, Settings: s}, proxySettings(cmd)
	default:
		return Page{Kind: kind}, nil
	}
}

// proxySettings wraps every message produced by cmd in SettingsMsg.
func proxySettings(cmd tea.Cmd) tea.Cmd {
	return mapCmd(cmd, func(msg tea.Msg) tea.Msg {
		return SettingsMsg{Msg: msg}
	})
}

// mapCmd rewrites the messages cmd produces, descending into batches.
func mapCmd(cmd tea.Cmd, f func(tea.Msg) tea.Msg) tea.Cmd {
	if cmd == nil {
		return nil
	}
	return func() tea.Msg {
		switch msg := cmd().(type) {
		case nil:
			return nil
		case tea.BatchMsg:
			out := make(tea.BatchMsg, 0, len(msg))
			for _, c := range msg {
				out = append(out, mapCmd(c, f))
			}
			return out
		default:
			return f(msg)
		}
	}
}
