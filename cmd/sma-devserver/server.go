package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/smacontrol/sma/internal/backup"
	"github.com/smacontrol/sma/internal/httpserver"
	"github.com/smacontrol/sma/internal/logger"
	"github.com/smacontrol/sma/internal/registry"
)

// runServer serves the dev backend until SIGINT or SIGTERM.
func runServer(cfg appConfig) error {
	log := logger.Setup(os.Stderr, logger.ParseLevel(cfg.LogLevel))
	gin.SetMode(gin.ReleaseMode)

	store, err := registry.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize registry: %w", err)
	}
	defer store.Close()

	pruner := registry.NewPruner(store, cfg.RetentionDays, log)
	defer pruner.Stop()

	backupManager, err := backup.NewManager(store, backup.Config{
		Enabled:  cfg.BackupEnabled,
		Interval: cfg.BackupInterval,
		LocalDir: cfg.BackupLocalDir,
		KeepLast: cfg.BackupKeepLast,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize backups: %w", err)
	}
	defer backupManager.Stop()

	api := httpserver.NewServer(httpserver.Options{
		Addr:       cfg.Addr,
		AuthConfig: cfg.authConfig(),
		Secret:     []byte(cfg.TokenSecret),
		Issuer:     cfg.Issuer,
		Store:      store,
		Logger:     log,
	})
	if err := api.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	printStartupBanner(cfg, api.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-sigCh:
			fmt.Println("\nShutting down gracefully...")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdown := make(chan error, 1)
		go func() { shutdown <- api.Stop() }()
		select {
		case err := <-shutdown:
			return err
		case <-time.After(10 * time.Second):
			return fmt.Errorf("shutdown timed out")
		}
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func printStartupBanner(cfg appConfig, addr string) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")
	separator := dim.Render("    ─────────────────────────────────")

	lines := []string{
		"",
		cyan.Bold(true).Render("    SMA dev backend"),
		"    " + dim.Render("v"+version),
		"",
		separator,
		"",
		bold.Render("    Endpoints"),
		"",
		fmt.Sprintf("    %s  Auth config    %s", check, cyan.Render("http://"+addr+"/auth_config.json")),
		fmt.Sprintf("    %s  Register       %s", check, cyan.Render("http://"+addr+"/sma-control/api/register")),
		fmt.Sprintf("    %s  Health         %s", check, cyan.Render("http://"+addr+"/api/health")),
		"",
		bold.Render("    Storage"),
		"",
		fmt.Sprintf("    %s  Registry       %s", check, dim.Render(shortenPath(cfg.DBPath))),
	}
	if cfg.BackupEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", check, dim.Render(shortenPath(cfg.BackupLocalDir))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", dot, dim.Render("disabled")))
	}
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}
	lines = append(lines,
		"",
		separator,
		"",
		"    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"),
		"",
	)

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	if path == "" {
		return "in-memory"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
