package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smacontrol/sma/internal/model"
	"github.com/smacontrol/sma/internal/route"
)

const (
	defaultWidth = 80
	// desktopWidth is the width from which the menu is laid out inline and
	// the burger is hidden.
	desktopWidth = 100
)

// Clickable zones.
const (
	zoneBrand    = "brand"
	zoneBurger   = "burger"
	zoneHome     = "home"
	zoneSettings = "settings"
	zoneNickname = "nickname"
	zoneSignUp   = "signup"
	zoneLogIn    = "login"
	zoneLogOut   = "logout"
	zoneGo       = "go"
)

// clickZones lists the action zones in hit-test order. The burger is tested
// separately.
var clickZones = []string{
	zoneBrand, zoneHome, zoneSettings, zoneNickname,
	zoneSignUp, zoneLogIn, zoneLogOut, zoneGo,
}

// View renders the navbar and the active page. When the last message
// changed nothing visible the previous frame is returned as is.
func (m *Model) View() string {
	if m.skipRender && m.lastFrame != "" {
		return m.lastFrame
	}
	m.lastFrame = m.zones.Scan(m.render())
	return m.lastFrame
}

func (m *Model) render() string {
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}

	sections := []string{
		m.renderNavbar(width),
		contentStyle.Render(m.renderContent(width - 4)),
	}
	if !m.prefs.Compact {
		sections = append(sections, mutedStyle.Render(m.location.URL().String()))
	}

	keys := m.keys
	keys.sessionAware(m.session.SignedIn())
	sections = append(sections, m.help.View(keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderNavbar(width int) string {
	bar := navbarStyle(m.prefs.Theme, width)
	brand := m.zones.Mark(zoneBrand, lipgloss.NewStyle().Bold(true).Padding(0, 1).Render("TT"))

	start := []string{
		m.zones.Mark(zoneHome, navItem("Home", m.page.Kind == route.KindHome)),
		m.zones.Mark(zoneSettings, navItem("Settings", m.page.Kind == route.KindSettings)),
	}
	end := m.accountButtons(m.session.User)

	if width >= desktopWidth {
		left := lipgloss.JoinHorizontal(lipgloss.Center, append([]string{brand}, start...)...)
		right := strings.Join(end, " ")
		gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 1
		if gap < 1 {
			gap = 1
		}
		return bar.Render(left + strings.Repeat(" ", gap) + right)
	}

	burger := "≡"
	if m.menuVisible {
		burger = "✕"
	}
	burger = m.zones.Mark(zoneBurger, lipgloss.NewStyle().Padding(0, 1).Render(burger))
	gap := width - lipgloss.Width(brand) - lipgloss.Width(burger)
	if gap < 1 {
		gap = 1
	}
	top := bar.Render(brand + strings.Repeat(" ", gap) + burger)
	if !m.menuVisible {
		return top
	}

	rows := []string{top}
	for _, item := range start {
		rows = append(rows, bar.Render(item))
	}
	rows = append(rows, bar.Render(" "+strings.Join(end, " ")))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func navItem(label string, active bool) string {
	s := lipgloss.NewStyle().Padding(0, 1)
	if active {
		s = s.Underline(true)
	}
	return s.Render(label)
}

func (m *Model) accountButtons(user *model.User) []string {
	if user != nil {
		return []string{
			m.zones.Mark(zoneNickname, primaryButtonStyle.Render(user.Nickname)),
			m.zones.Mark(zoneLogOut, lightButtonStyle.Render("Log out")),
		}
	}
	return []string{
		m.zones.Mark(zoneSignUp, primaryButtonStyle.Render("Sign up")),
		m.zones.Mark(zoneLogIn, lightButtonStyle.Render("Log in")),
	}
}

func (m *Model) renderContent(width int) string {
	switch m.page.Kind {
	case route.KindHome:
		return m.renderHome()
	case route.KindSettings:
		return m.page.Settings.View(width, m.session.User)
	default:
		return heroTitleStyle.Render("404") + "\n" +
			mutedStyle.Render("Page not found. Press h to go home.")
	}
}

func (m *Model) renderHome() string {
	var b strings.Builder
	b.WriteString(heroTitleStyle.Render("SMA"))
	b.WriteString("\n")
	if !m.prefs.Compact {
		b.WriteString(mutedStyle.Render("SMA control panel"))
		b.WriteString("\n\n")
	}
	b.WriteString(m.zones.Mark(zoneGo, primaryButtonStyle.Render("Go SMA")))
	return b.String()
}
