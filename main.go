package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lucasvtiradentes/gcal-sync/pkg/auth"
	"github.com/lucasvtiradentes/gcal-sync/pkg/config"
	"github.com/lucasvtiradentes/gcal-sync/pkg/gcal"
	"github.com/lucasvtiradentes/gcal-sync/pkg/github"
	"github.com/lucasvtiradentes/gcal-sync/pkg/ics"
	"github.com/lucasvtiradentes/gcal-sync/pkg/report"
	"github.com/lucasvtiradentes/gcal-sync/pkg/store"
	"github.com/lucasvtiradentes/gcal-sync/pkg/sync"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "gcal-sync",
		Short:        "Keep Google Calendar in sync with ICS task feeds and GitHub commits",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.config/gcal-sync/config.yml)")

	root.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), configPath)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Google Calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd.Context())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(configPath); err != nil {
				return err
			}
			fmt.Println("config is valid")
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSync(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if cfg.Options.ShowLogs {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	srv, err := auth.GetCalendarService(ctx)
	if err != nil {
		return err
	}
	cal := gcal.NewClient(srv)

	props, err := store.Open("")
	if err != nil {
		return err
	}
	defer props.Close()

	var commits sync.CommitsFetcher
	if cfg.GitHubSync != nil && cfg.GitHubSync.CommitsConfigs != nil {
		commits = github.NewClient(cfg.GitHubSync.Username, cfg.GitHubSync.PersonalToken, nil)
	}

	reporter := report.NewReporter(cfg.Options, props, &report.LogNotifier{Logger: logger}, logger)
	orchestrator := sync.NewOrchestrator(cfg, cal, ics.NewFetcher(), commits, reporter, logger)

	session := orchestrator.Run(ctx)
	if session.FatalError != nil {
		return session.FatalError
	}
	return nil
}

// runAuth removes any cached token and walks through the web flow again,
// leaving a fresh token on disk.
func runAuth(ctx context.Context) error {
	xdgConfigBase, err := auth.GetXdgHome()
	if err != nil {
		return fmt.Errorf("could not find path to configuration file: %w", err)
	}

	tokenFile := filepath.Join(xdgConfigBase, auth.TokenFile)
	_, err = os.Stat(tokenFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("could not check token file '%s', error %v", tokenFile, err)
		}
	} else {
		log.Printf("Removing existing token file at '%s'", tokenFile)
		if err = os.Remove(tokenFile); err != nil {
			return fmt.Errorf("could not delete token file '%s': %w. Please delete it manually", tokenFile, err)
		}
	}

	if _, err = auth.GetCalendarService(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	log.Printf("Authentication successful! Token saved to %s", auth.TokenFile)
	return nil
}
