package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zapp"
	"github.com/zarlcorp/zfill/internal/cli"
	"github.com/zarlcorp/zfill/internal/config"
	"github.com/zarlcorp/zfill/internal/persona"
	"github.com/zarlcorp/zfill/internal/simplelogin"
	"github.com/zarlcorp/zfill/internal/tui"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	app := zapp.New(zapp.WithName("zfill"))

	ctx, cancel := zapp.SignalContext(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "zfill: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	a := &cli.App{
		Version: version,
		Config:  cfg,
		Client: simplelogin.NewClient(simplelogin.Config{
			BaseURL:           cfg.BaseURL,
			RequestsPerSecond: cfg.RateLimit,
		}),
		Gen:    persona.New(),
		Logger: logger,
	}
	a.RunTUI = func(ctx context.Context) error { return runTUI(ctx, a) }

	code := cli.Execute(ctx, a, os.Args[1:])

	if err := app.Close(); err != nil {
		slog.Error("shutdown", "err", err)
		code = 1
	}
	cancel()
	os.Exit(code)
}

func runTUI(ctx context.Context, a *cli.App) error {
	m := tui.New(tui.Options{
		Version:  a.Version,
		DataDir:  a.Config.DataDir,
		FirstRun: cli.IsFirstRun(a.Config.DataDir),
		Config:   a.Config,
		Client:   a.Client,
		Gen:      a.Gen,
		Logger:   a.Logger,
	})

	p := tea.NewProgram(m, tea.WithContext(ctx))
	finalModel, err := p.Run()
	if fm, ok := finalModel.(tui.Model); ok {
		fm.Close()
	}
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
