package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/CrowderSoup/spearmint/database"
	"github.com/CrowderSoup/spearmint/services"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "spearmint",
	Short:         "Kanban, pomodoro, schedule and journal for one person",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "spearmint.yaml", "Path to the YAML config file")
}

func loadConfig() (services.Config, error) {
	return services.LoadConfig(configPath)
}

func openStore(ctx context.Context, cfg services.Config) (database.Store, error) {
	store, err := database.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	return store, nil
}

// requireSession loads the saved login. Commands that act for a user refuse
// to run without one.
func requireSession(cfg services.Config) (services.Session, error) {
	s, err := services.SessionFile{Path: cfg.SessionFile}.Load()
	if errors.Is(err, services.ErrNoSession) {
		return services.Session{}, fmt.Errorf("not logged in, run `spearmint login` first")
	}
	return s, err
}

// withSession loads config, session and store for a user command.
func withSession(ctx context.Context, fn func(services.Config, services.Session, database.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := requireSession(cfg)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, s, store)
}
