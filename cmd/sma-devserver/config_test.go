package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devserver.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
domain: tenant.example.com
client-id: client-1
audience: https://api.example.com
token-secret: s3cret
port: 9090
retention-days: 7
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9090" {
		t.Fatalf("Addr = %q, want 127.0.0.1:9090", cfg.Addr)
	}
	if cfg.RetentionDays != 7 {
		t.Fatalf("RetentionDays = %d, want 7", cfg.RetentionDays)
	}
	if got := cfg.authConfig(); got.ClientID != "client-1" || got.Audience != "https://api.example.com" {
		t.Fatalf("authConfig = %+v", got)
	}
	if cfg.ConfigPath != path {
		t.Fatalf("ConfigPath = %q, want %q", cfg.ConfigPath, path)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
domain: tenant.example.com
client-id: client-1
audience: https://api.example.com
token-secret: s3cret
`)
	t.Setenv("SMA_CLIENT_ID", "from-env")
	t.Setenv("SMA_PORT", "7070")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.ClientID != "from-env" || cfg.Port != 7070 {
		t.Fatalf("ClientID, Port = %q, %d, want from-env, 7070", cfg.ClientID, cfg.Port)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := map[string]string{
		"missing domain": "client-id: c\naudience: a\ntoken-secret: s\n",
		"missing secret": "domain: d\nclient-id: c\naudience: a\n",
		"bad port":       "domain: d\nclient-id: c\naudience: a\ntoken-secret: s\nport: 70000\n",
	}
	for name, body := range tests {
		if _, err := loadConfig(writeConfig(t, body)); err == nil {
			t.Errorf("%s: loadConfig succeeded", name)
		}
	}
}
