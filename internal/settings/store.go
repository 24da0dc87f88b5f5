package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/smacontrol/sma/internal/model"
)

// FileStore persists preferences as a YAML file.
type FileStore struct {
	Path string
}

// Load reads the preferences file. A missing file yields the defaults.
func (s FileStore) Load() (model.Preferences, error) {
	prefs := Defaults()

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("settings: read %s: %w", s.Path, err)
	}
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return Defaults(), fmt.Errorf("settings: parse %s: %w", s.Path, err)
	}
	if prefs.Theme == "" {
		prefs.Theme = model.DefaultTheme
	}
	return prefs, nil
}

// Save writes the preferences file atomically.
func (s FileStore) Save(p model.Preferences) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("settings: create dir: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("settings: write: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("settings: rename: %w", err)
	}
	return nil
}

// Defaults returns the preferences used before anything is saved.
func Defaults() model.Preferences {
	return model.Preferences{Theme: model.DefaultTheme}
}
