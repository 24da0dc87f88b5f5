package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/smacontrol/sma/internal/model"
)

const (
	defaultBindHost       = "127.0.0.1"
	defaultPort           = 8080
	defaultQueryTimeout   = 10 * time.Second
	defaultRetentionDays  = 0 // 0 = keep registrations forever
	defaultBackupInterval = 6 * time.Hour
	defaultBackupKeepLast = 24
)

// appConfig is the dev backend's runtime configuration.
type appConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Addr     string `mapstructure:"addr"`
	Domain   string `mapstructure:"domain"`
	ClientID string `mapstructure:"client-id"`
	Audience string `mapstructure:"audience"`
	Issuer   string `mapstructure:"issuer"`
	// TokenSecret verifies HS256 bearer tokens. RS256 tokens issued by a
	// hosted tenant are rejected.
	TokenSecret    string        `mapstructure:"token-secret"`
	DBPath         string        `mapstructure:"db-path"`
	QueryTimeout   time.Duration `mapstructure:"query-timeout"`
	RetentionDays  int           `mapstructure:"retention-days"`
	BackupEnabled  bool          `mapstructure:"backup-enabled"`
	BackupInterval time.Duration `mapstructure:"backup-interval"`
	BackupLocalDir string        `mapstructure:"backup-local-dir"`
	BackupKeepLast int           `mapstructure:"backup-keep-last"`
	LogLevel       string        `mapstructure:"log-level"`
	ConfigPath     string        `mapstructure:"-"`
}

func (c appConfig) authConfig() model.AuthConfig {
	return model.AuthConfig{Domain: c.Domain, ClientID: c.ClientID, Audience: c.Audience}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("SMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("host", defaultBindHost)
	v.SetDefault("port", defaultPort)
	v.SetDefault("addr", "")
	v.SetDefault("domain", "")
	v.SetDefault("client-id", "")
	v.SetDefault("audience", "")
	v.SetDefault("issuer", "")
	v.SetDefault("token-secret", "")
	v.SetDefault("db-path", filepath.Join(home, ".local", "share", "sma", "registry.duckdb"))
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("retention-days", defaultRetentionDays)
	v.SetDefault("backup-enabled", false)
	v.SetDefault("backup-interval", defaultBackupInterval)
	v.SetDefault("backup-local-dir", filepath.Join(home, ".local", "share", "sma", "backups"))
	v.SetDefault("backup-keep-last", defaultBackupKeepLast)
	v.SetDefault("log-level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "sma", "devserver.yml"))
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
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if err := cfg.authConfig().Validate(); err != nil {
		return cfg, err
	}
	if cfg.TokenSecret == "" {
		return cfg, errors.New("token-secret is required to verify register calls")
	}

	for _, p := range []*string{&cfg.DBPath, &cfg.BackupLocalDir} {
		if strings.HasPrefix(*p, "~/") {
			*p = filepath.Join(home, (*p)[2:])
		}
	}
	if cfg.Addr == "" {
		cfg.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}
	return cfg, nil
}
