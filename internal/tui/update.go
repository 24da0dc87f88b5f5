package tui

import (
	"log/slog"
	"net/url"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smacontrol/sma/internal/model"
	"github.com/smacontrol/sma/internal/route"
)

// Update applies one message to the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.skipRender = false

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		return m.handleMouseEvent(msg)

	case URLChangedMsg:
		var cmd tea.Cmd
		m.page, cmd = m.initPage(msg.URL)
		return m, cmd

	case NavigateMsg:
		m.location.Push(msg.URL)
		return m.Update(URLChangedMsg{URL: m.location.URL()})

	case BackMsg:
		u, ok := m.location.Back()
		if !ok {
			return m, nil
		}
		return m.Update(URLChangedMsg{URL: u})

	case ReloadMsg:
		return m, m.reload(msg.URL)

	case ToggleMenuMsg:
		m.menuVisible = !m.menuVisible
		return m, nil

	case HideMenuMsg:
		if !m.menuVisible {
			m.skipRender = true
			return m, nil
		}
		m.menuVisible = false
		return m, nil

	case AuthConfigFetchedMsg:
		if m.stale(msg.generation) {
			return m, nil
		}
		if msg.Err != nil {
			m.logger.Error("fetch auth config", slog.String("error", msg.Err.Error()))
			return m, nil
		}
		cfg := msg.Config
		m.authConfig = &cfg
		return m, m.initializeAuthCmd(cfg)

	case AuthInitializedMsg:
		if m.stale(msg.generation) {
			return m, nil
		}
		if msg.Err != nil {
			m.logger.Error("initialize identity provider", slog.String("error", msg.Err.Error()))
			return m, nil
		}
		m.cleanupAuthResidue()
		if msg.Identity == nil {
			return m, nil
		}
		user, err := model.DecodeUser(msg.Identity)
		if err != nil {
			m.logger.Error("decode identity", slog.String("error", err.Error()))
			return m, nil
		}
		m.session = model.Session{User: &user}
		m.logger.Info("signed in", slog.String("sub", user.Sub))
		return m, m.tokenCmd(user.Sub)

	case TokenResolvedMsg:
		if m.stale(msg.generation) {
			return m, nil
		}
		if msg.Err != nil {
			m.logger.Error("get token silently", slog.String("error", msg.Err.Error()))
			return m, nil
		}
		if m.session.User == nil || m.session.User.Sub != msg.Subject {
			m.logger.Debug("dropping token for ended session", slog.String("sub", msg.Subject))
			return m, nil
		}
		tok := msg.Token
		m.session.Token = &tok
		return m, m.registerCmd(msg.Subject, tok)

	case LoggedInMsg:
		if msg.Err != nil {
			m.logger.Error("register", slog.String("sub", msg.Subject), slog.String("error", msg.Err.Error()))
			return m, nil
		}
		m.logger.Info("registered", slog.String("sub", msg.Subject), slog.String("response", msg.Response))
		return m, nil

	case SignUpMsg:
		return m, m.signUpCmd()

	case LogInMsg:
		return m, m.logInCmd()

	case RedirectingToSignUpMsg:
		if msg.Err != nil {
			m.logger.Error("redirect to sign-up", slog.String("error", msg.Err.Error()))
		}
		return m, nil

	case RedirectingToLogInMsg:
		if msg.Err != nil {
			m.logger.Error("redirect to login", slog.String("error", msg.Err.Error()))
		}
		return m, nil

	case LogOutMsg:
		if m.provider == nil {
			m.logger.Error("log out", slog.String("error", errNoProvider.Error()))
			return m, nil
		}
		if err := m.provider.Logout(); err != nil {
			m.logger.Error("log out", slog.String("error", err.Error()))
			return m, nil
		}
		m.session = model.Session{}
		return m, nil

	case preferencesLoadedMsg:
		if msg.err != nil {
			m.logger.Warn("load preferences", slog.String("error", msg.err.Error()))
			return m, nil
		}
		m.prefs = msg.prefs
		return m, nil

	case SettingsMsg:
		return m.updateSettings(msg.Msg)
	}

	return m, nil
}

// reload restarts the shell at u: a fresh page, no session and a new
// auth chain.
func (m *Model) reload(u *url.URL) tea.Cmd {
	if u == nil {
		u = m.location.URL()
	}
	m.generation++
	m.session = model.Session{}
	m.authConfig = nil
	m.menuVisible = false
	m.baseURL = route.BaseURL(u, m.basePath)

	var pageCmd tea.Cmd
	m.page, pageCmd = m.initPage(u)
	return tea.Batch(pageCmd, m.loadPreferencesCmd(), m.fetchAuthConfigCmd())
}

// stale reports whether an auth chain result belongs to a load that a
// reload has since replaced.
func (m *Model) stale(gen uint64) bool {
	if gen == m.generation {
		return false
	}
	m.logger.Debug("dropping result from before reload", slog.Uint64("generation", gen))
	return true
}

// cleanupAuthResidue drops the code and state left in the address by a
// login redirect. The history entry is replaced so nothing reloads.
func (m *Model) cleanupAuthResidue() {
	if u, changed := route.StripAuthResidue(m.location.URL()); changed {
		m.location.Replace(u)
	}
	if u, changed := route.StripAuthResidue(m.baseURL); changed {
		m.baseURL = u
	}
}

// updateSettings forwards msg to the settings page, or drops it when another
// page is active.
func (m *Model) updateSettings(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.page.Kind != route.KindSettings {
		return m, nil
	}
	var cmd tea.Cmd
	m.page.Settings, cmd = m.page.Settings.Update(msg)
	if m.page.Settings.Loaded() && !m.page.Settings.Dirty() {
		m.prefs = m.page.Settings.Preferences()
	}
	return m, proxySettings(cmd)
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}

	onSettings := m.page.Kind == route.KindSettings
	if onSettings && m.page.Settings.Editing() {
		return m.updateSettings(msg)
	}

	keys := m.keys
	keys.sessionAware(m.session.SignedIn())
	links := route.Links{Base: m.baseURL}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, keys.Home):
		return m.Update(NavigateMsg{URL: links.Home()})
	case key.Matches(msg, keys.Settings):
		return m.Update(NavigateMsg{URL: links.Settings()})
	case key.Matches(msg, keys.Back):
		return m.Update(BackMsg{})
	case key.Matches(msg, keys.Reload):
		return m.Update(ReloadMsg{URL: m.location.URL()})
	case key.Matches(msg, keys.ToggleMenu):
		return m.Update(ToggleMenuMsg{})
	case key.Matches(msg, keys.HideMenu) && m.menuVisible:
		return m.Update(HideMenuMsg{})
	case key.Matches(msg, keys.SignUp):
		return m.Update(SignUpMsg{})
	case key.Matches(msg, keys.LogIn):
		return m.Update(LogInMsg{})
	case key.Matches(msg, keys.LogOut):
		return m.Update(LogOutMsg{})
	}

	if onSettings {
		return m.updateSettings(msg)
	}
	return m, nil
}

func (m *Model) handleMouseEvent(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	if m.inZone(zoneBurger, msg) {
		return m.Update(ToggleMenuMsg{})
	}
	for _, id := range clickZones {
		if !m.inZone(id, msg) {
			continue
		}
		action := m.clickAction(id)
		if action == nil {
			break
		}
		_, cmd := m.Update(action)
		m.menuVisible = false
		return m, cmd
	}
	return m.Update(HideMenuMsg{})
}

func (m *Model) inZone(id string, msg tea.MouseMsg) bool {
	z := m.zones.Get(id)
	return z != nil && z.InBounds(msg)
}

// clickAction maps a clickable zone to the message it triggers. Account
// buttons only act while they are shown.
func (m *Model) clickAction(id string) tea.Msg {
	links := route.Links{Base: m.baseURL}
	signedIn := m.session.SignedIn()
	switch id {
	case zoneBrand, zoneHome:
		return NavigateMsg{URL: links.Home()}
	case zoneSettings, zoneNickname, zoneGo:
		return NavigateMsg{URL: links.Settings()}
	case zoneSignUp:
		if !signedIn {
			return SignUpMsg{}
		}
	case zoneLogIn:
		if !signedIn {
			return LogInMsg{}
		}
	case zoneLogOut:
		if signedIn {
			return LogOutMsg{}
		}
	}
	return nil
}
