package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smacontrol/sma/internal/api"
	"github.com/smacontrol/sma/internal/auth"
	"github.com/smacontrol/sma/internal/location"
	"github.com/smacontrol/sma/internal/logger"
	"github.com/smacontrol/sma/internal/settings"
	"github.com/smacontrol/sma/internal/tui"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var appURL string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/sma/config.yml)")
	flag.StringVar(&appURL, "url", "", "override the application URL to open")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("SMA - Control Panel\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if appURL != "" {
		cfg.AppURL = appURL
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg cliConfig) error {
	start, err := parseAppURL(cfg.AppURL)
	if err != nil {
		return err
	}

	logFile, err := logger.OpenFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log := logger.Setup(logFile, logger.ParseLevel(cfg.LogLevel))
	log.Info("starting", "version", version, "url", start.String())

	history := location.New(start)
	provider := auth.NewProvider(auth.Options{
		Location:     history,
		AppURL:       start,
		CallbackAddr: cfg.CallbackAddr,
		EndSession:   cfg.EndSession,
		Logger:       log,
	})
	defer provider.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shell := tui.New(tui.Options{
		Backend:     api.NewClient(start, http.DefaultClient, log),
		Provider:    provider,
		Location:    history,
		Preferences: settings.FileStore{Path: cfg.PreferencesPath},
		BasePath:    cfg.BasePath,
		Logger:      log,
		Context:     ctx,
	})
	defer shell.Close()

	p := tea.NewProgram(shell, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	history.OnReload(func(u *url.URL) {
		p.Send(tui.ReloadMsg{URL: u})
	})

	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
