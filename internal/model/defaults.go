package model

// Shared defaults used by both the shell and the dev server binaries.
const (
	DefaultAppURL   = "http://localhost:8080/"
	DefaultDevAddr  = "127.0.0.1:8080"
	DefaultTheme    = "link"
	AuthConfigPath  = "/auth_config.json"
	RegisterPath    = "/sma-control/api/register"
	SettingsSegment = "settings"
	AuthCodeParam   = "code"
	AuthStateParam  = "state"
	DefaultScope    = "openid profile email offline_access"
)
