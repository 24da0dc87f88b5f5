package model

import (
	"context"
	"net/url"
)

// IdentityProvider is the hosted login capability the shell drives.
// Initialize returns a nil Identity when nobody is signed in.
type IdentityProvider interface {
	Initialize(ctx context.Context, cfg AuthConfig) (Identity, error)
	TokenSilently(ctx context.Context) (string, error)
	RedirectToSignUp(ctx context.Context) error
	RedirectToLogIn(ctx context.Context) error
	Logout() error
}

// Backend is the application origin: static auth config plus the control API.
type Backend interface {
	FetchAuthConfig(ctx context.Context) (AuthConfig, error)
	Register(ctx context.Context, token string) (string, error)
}

// Location is the current address plus its history.
// Replace rewrites the current entry without notifying anyone.
type Location interface {
	URL() *url.URL
	Push(u *url.URL)
	Replace(u *url.URL)
	Back() (*url.URL, bool)
}

// PreferencesStore loads and saves settings page preferences.
type PreferencesStore interface {
	Load() (Preferences, error)
	Save(p Preferences) error
}

// RegistrationStore records users that called the register endpoint.
type RegistrationStore interface {
	Register(ctx context.Context, r Registration) (Registration, error)
	RegistrationCount(ctx context.Context) (int64, error)
}
