package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all shell key bindings with built-in help text.
type KeyMap struct {
	// Global
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding
	Reload    key.Binding

	// Navigation
	Home     key.Binding
	Settings key.Binding
	Back     key.Binding

	// Navbar
	ToggleMenu key.Binding
	HideMenu   key.Binding
	SignUp     key.Binding
	LogIn      key.Binding
	LogOut     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more help"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),

		Home: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "home"),
		),
		Settings: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "settings"),
		),
		Back: key.NewBinding(
			key.WithKeys("b", "backspace"),
			key.WithHelp("b", "back"),
		),

		ToggleMenu: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "menu"),
		),
		HideMenu: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close menu"),
		),
		SignUp: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "sign up"),
		),
		LogIn: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "log in"),
		),
		LogOut: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "log out"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Home, k.Settings, k.ToggleMenu, k.LogIn, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Home, k.Settings, k.Back, k.Reload},
		{k.ToggleMenu, k.HideMenu},
		{k.SignUp, k.LogIn, k.LogOut},
		{k.Help, k.Quit, k.ForceQuit},
	}
}

// sessionAware enables only the account bindings that apply to the current
// login state, mirroring which navbar buttons are shown.
func (k *KeyMap) sessionAware(signedIn bool) {
	k.SignUp.SetEnabled(!signedIn)
	k.LogIn.SetEnabled(!signedIn)
	k.LogOut.SetEnabled(signedIn)
}
