// Package tui is the application shell: it routes between pages, drives the
// authentication chain and renders the navbar around the active page.
package tui

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/smacontrol/sma/internal/model"
	"github.com/smacontrol/sma/internal/route"
	"github.com/smacontrol/sma/internal/settings"
)

// Options configures a Model.
type Options struct {
	Backend     model.Backend
	Provider    model.IdentityProvider
	Location    model.Location
	Preferences model.PreferencesStore
	// BasePath is the path the application is mounted under, "/" by default.
	BasePath string
	Logger   *slog.Logger
	// Context is passed to every backend and provider call.
	Context context.Context
}

// Model is the whole application state. It is only touched from Update.
type Model struct {
	backend     model.Backend
	provider    model.IdentityProvider
	location    model.Location
	preferences model.PreferencesStore
	basePath    string
	logger      *slog.Logger
	ctx         context.Context

	session     model.Session
	baseURL     *url.URL
	page        Page
	menuVisible bool
	authConfig  *model.AuthConfig
	prefs       model.Preferences
	// generation counts reloads. Auth chain results carry the generation
	// they were started in and are dropped once it has moved on.
	generation uint64

	width  int
	height int
	keys   KeyMap
	help   help.Model
	zones  *zone.Manager

	lastFrame  string
	skipRender bool
	initCmd    tea.Cmd
}

// New creates the shell positioned at the location's current URL.
func New(opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.BasePath == "" {
		opts.BasePath = "/"
	}

	m := &Model{
		backend:     opts.Backend,
		provider:    opts.Provider,
		location:    opts.Location,
		preferences: opts.Preferences,
		basePath:    opts.BasePath,
		logger:      opts.Logger.With(slog.String("component", "shell")),
		ctx:         opts.Context,
		prefs:       settings.Defaults(),
		keys:        DefaultKeyMap(),
		help:        help.New(),
		zones:       zone.New(),
	}

	u := m.location.URL()
	m.baseURL = route.BaseURL(u, m.basePath)
	var pageCmd tea.Cmd
	m.page, pageCmd = m.initPage(u)
	m.initCmd = tea.Batch(pageCmd, m.loadPreferencesCmd())
	return m
}

// Init starts the auth chain and the initial page.
func (m *Model) Init() tea.Cmd {
	cmd := m.initCmd
	m.initCmd = nil
	return tea.Batch(cmd, m.fetchAuthConfigCmd())
}

// Session returns the current session.
func (m *Model) Session() model.Session { return m.session }

// Page returns the active page.
func (m *Model) Page() Page { return m.page }

// MenuVisible reports whether the burger menu is open.
func (m *Model) MenuVisible() bool { return m.menuVisible }

// AuthConfig returns the fetched provider config, or nil before it arrives.
func (m *Model) AuthConfig() *model.AuthConfig { return m.authConfig }

// BaseURL returns a copy of the application root.
func (m *Model) BaseURL() *url.URL {
	u := *m.baseURL
	return &u
}

// RenderSkipped reports whether the last message left the screen unchanged,
// in which case View returns the previous frame without rendering.
func (m *Model) RenderSkipped() bool { return m.skipRender }

// Close releases the click-zone tracker.
func (m *Model) Close() {
	m.zones.Close()
}
