// Package backup takes periodic local snapshots of the dev backend's
// registry database and keeps the most recent ones.
package backup

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	defaultInterval = 6 * time.Hour
	defaultKeepLast = 24

	filePrefix = "sma-registry-"
	fileSuffix = ".duckdb"
)

// Manager runs periodic local snapshots.
type Manager struct {
	store  Snapshotter
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewManager validates cfg, takes a first snapshot and starts the loop.
// It returns nil when backups are disabled.
func NewManager(store Snapshotter, cfg Config, logger *slog.Logger) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if store == nil {
		return nil, errors.New("backup: nil snapshotter")
	}
	if strings.TrimSpace(store.DBPath()) == "" {
		return nil, errors.New("backup: db-path is empty (in-memory store)")
	}
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, errors.New("backup: local-dir is required when backup is enabled")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if err := os.MkdirAll(cfg.LocalDir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create local-dir: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := &Manager{
		store:  store,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "backup")),
		now:    time.Now,
		done:   make(chan struct{}),
	}

	if _, err := m.RunOnce(); err != nil {
		m.logger.Error("startup snapshot", slog.String("error", err.Error()))
	}

	m.wg.Add(1)
	go m.loop()
	return m, nil
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.RunOnce(); err != nil {
				m.logger.Error("periodic snapshot", slog.String("error", err.Error()))
			}
		case <-m.done:
			return
		}
	}
}

// RunOnce writes one snapshot, prunes old ones and returns the new path.
func (m *Manager) RunOnce() (string, error) {
	name := filePrefix + m.now().UTC().Format("20060102-150405.000000") + fileSuffix
	path := filepath.Join(m.cfg.LocalDir, name)
	if err := m.store.SnapshotTo(path); err != nil {
		return "", fmt.Errorf("backup: snapshot: %w", err)
	}
	m.logger.Info("created snapshot", slog.String("path", path))

	if err := pruneLocal(m.cfg.LocalDir, m.cfg.KeepLast); err != nil {
		return path, fmt.Errorf("backup: prune: %w", err)
	}
	return path, nil
}

// Stop terminates the loop. Stop on a nil Manager is a no-op.
func (m *Manager) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}

// pruneLocal keeps the newest keepLast snapshots in dir. Names embed the
// timestamp, so lexical order is chronological.
func pruneLocal(dir string, keepLast int) error {
	if keepLast <= 0 {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return err
	}
	if len(matches) <= keepLast {
		return nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	for _, old := range matches[keepLast:] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
