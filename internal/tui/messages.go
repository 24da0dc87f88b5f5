package tui

import (
	"net/url"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smacontrol/sma/internal/model"
)

// URLChangedMsg reports that the location now points at URL. The page is
// re-selected and re-initialized even when the route did not change.
type URLChangedMsg struct {
	URL *url.URL
}

// NavigateMsg asks the shell to push URL onto the history.
type NavigateMsg struct {
	URL *url.URL
}

// BackMsg steps one entry back in the history.
type BackMsg struct{}

// ReloadMsg restarts the shell at URL as a fresh page load would: session,
// auth config and menu state are discarded and the auth chain runs again.
type ReloadMsg struct {
	URL *url.URL
}

// ToggleMenuMsg flips the burger menu.
type ToggleMenuMsg struct{}

// HideMenuMsg closes the burger menu. It is sent for every click.
type HideMenuMsg struct{}

// AuthConfigFetchedMsg carries the result of fetching the provider config.
type AuthConfigFetchedMsg struct {
	Config model.AuthConfig
	Err    error

	generation uint64
}

// AuthInitializedMsg carries the result of initializing the provider.
// A nil Identity means nobody is signed in.
type AuthInitializedMsg struct {
	Identity model.Identity
	Err      error

	generation uint64
}

// TokenResolvedMsg carries the silent token requested for Subject.
type TokenResolvedMsg struct {
	Subject string
	Token   string
	Err     error

	generation uint64
}

// LoggedInMsg carries the backend's answer to the register call.
type LoggedInMsg struct {
	Subject  string
	Response string
	Err      error
}

// SignUpMsg starts the hosted sign-up flow.
type SignUpMsg struct{}

// LogInMsg starts the hosted login flow.
type LogInMsg struct{}

// LogOutMsg ends the session.
type LogOutMsg struct{}

// RedirectingToSignUpMsg reports the outcome of opening the sign-up page.
type RedirectingToSignUpMsg struct {
	Err error
}

// RedirectingToLogInMsg reports the outcome of opening the login page.
type RedirectingToLogInMsg struct {
	Err error
}

// SettingsMsg wraps a message that belongs to the settings page. It is
// dropped when the settings page is not active.
type SettingsMsg struct {
	Msg tea.Msg
}
