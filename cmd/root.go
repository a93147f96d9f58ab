package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mikermcconnell/BusScheduler-sub001/config"
	corestore "github.com/mikermcconnell/BusScheduler-sub001/core/store"
	"github.com/mikermcconnell/BusScheduler-sub001/infra/store"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "busched",
	Short: "Transit schedule editing service",
}

func init() {
	cobra.OnInitialize(func() {
		// A missing .env file is fine; explicit config still loads.
		_ = godotenv.Load()
	})
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// newStore builds the snapshot store selected by the configuration.
func newStore(ctx context.Context, cfg config.StoreConfig) (corestore.SnapshotStore, func(), error) {
	switch cfg.Backend {
	case "file":
		fs, err := store.NewFileStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	case "postgres":
		pg, err := store.NewPostgresStore(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case "none":
		return corestore.NopStore{}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %s", cfg.Backend)
	}
}
