package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/smacontrol/sma/internal/model"
)

// cliConfig holds the shell's runtime configuration.
type cliConfig struct {
	AppURL          string `mapstructure:"app-url"`
	BasePath        string `mapstructure:"base-path"`
	LogFile         string `mapstructure:"log-file"`
	LogLevel        string `mapstructure:"log-level"`
	CallbackAddr    string `mapstructure:"callback-addr"`
	EndSession      bool   `mapstructure:"end-session"`
	PreferencesPath string `mapstructure:"preferences-path"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("SMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("app-url", model.DefaultAppURL)
	v.SetDefault("base-path", "/")
	v.SetDefault("log-file", filepath.Join(home, ".local", "state", "sma", "sma.log"))
	v.SetDefault("log-level", "info")
	v.SetDefault("callback-addr", "127.0.0.1:8765")
	v.SetDefault("end-session", true)
	v.SetDefault("preferences-path", filepath.Join(home, ".config", "sma", "preferences.yml"))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "sma", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	for _, p := range []*string{&cfg.LogFile, &cfg.PreferencesPath} {
		if strings.HasPrefix(*p, "~/") {
			*p = filepath.Join(home, (*p)[2:])
		}
	}
	return cfg, nil
}

// parseAppURL validates an absolute http(s) application URL.
func parseAppURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid app-url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid app-url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid app-url %q: missing host", raw)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}
