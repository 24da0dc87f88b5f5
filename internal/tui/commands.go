package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smacontrol/sma/internal/model"
)

var (
	errNoBackend  = errors.New("tui: no backend configured")
	errNoProvider = errors.New("tui: no identity provider configured")
)

func (m *Model) fetchAuthConfigCmd() tea.Cmd {
	backend, ctx, gen := m.backend, m.ctx, m.generation
	return func() tea.Msg {
		if backend == nil {
			return AuthConfigFetchedMsg{Err: errNoBackend, generation: gen}
		}
		cfg, err := backend.FetchAuthConfig(ctx)
		return AuthConfigFetchedMsg{Config: cfg, Err: err, generation: gen}
	}
}

func (m *Model) initializeAuthCmd(cfg model.AuthConfig) tea.Cmd {
	provider, ctx, gen := m.provider, m.ctx, m.generation
	return func() tea.Msg {
		if provider == nil {
			return AuthInitializedMsg{Err: errNoProvider, generation: gen}
		}
		id, err := provider.Initialize(ctx, cfg)
		return AuthInitializedMsg{Identity: id, Err: err, generation: gen}
	}
}

func (m *Model) tokenCmd(subject string) tea.Cmd {
	provider, ctx, gen := m.provider, m.ctx, m.generation
	return func() tea.Msg {
		tok, err := provider.TokenSilently(ctx)
		return TokenResolvedMsg{Subject: subject, Token: tok, Err: err, generation: gen}
	}
}

func (m *Model) registerCmd(subject, token string) tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		resp, err := backend.Register(ctx, token)
		return LoggedInMsg{Subject: subject, Response: resp, Err: err}
	}
}

func (m *Model) signUpCmd() tea.Cmd {
	provider, ctx := m.provider, m.ctx
	return func() tea.Msg {
		if provider == nil {
			return RedirectingToSignUpMsg{Err: errNoProvider}
		}
		return RedirectingToSignUpMsg{Err: provider.RedirectToSignUp(ctx)}
	}
}

func (m *Model) logInCmd() tea.Cmd {
	provider, ctx := m.provider, m.ctx
	return func() tea.Msg {
		if provider == nil {
			return RedirectingToLogInMsg{Err: errNoProvider}
		}
		return RedirectingToLogInMsg{Err: provider.RedirectToLogIn(ctx)}
	}
}

type preferencesLoadedMsg struct {
	prefs model.Preferences
	err   error
}

func (m *Model) loadPreferencesCmd() tea.Cmd {
	store := m.preferences
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		p, err := store.Load()
		return preferencesLoadedMsg{prefs: p, err: err}
	}
}
