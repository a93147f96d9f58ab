package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mikermcconnell/BusScheduler-sub001/app"
	"github.com/mikermcconnell/BusScheduler-sub001/config"
	corestore "github.com/mikermcconnell/BusScheduler-sub001/core/store"
	"github.com/mikermcconnell/BusScheduler-sub001/infra/logger"
	"github.com/mikermcconnell/BusScheduler-sub001/pkg/export"
)

var (
	applyTrip      int
	applyTimepoint string
	applyMinutes   int
	applyFormat    string
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a single recovery edit to the saved schedule",
	RunE:  runApply,
}

func init() {
	applyCmd.Flags().IntVar(&applyTrip, "trip", 0, "trip number to edit")
	applyCmd.Flags().StringVar(&applyTimepoint, "timepoint", "", "timepoint id to edit")
	applyCmd.Flags().IntVar(&applyMinutes, "minutes", 0, "new recovery minutes")
	applyCmd.Flags().StringVar(&applyFormat, "output", "", "print the result as json or csv")
	_ = applyCmd.MarkFlagRequired("trip")
	_ = applyCmd.MarkFlagRequired("timepoint")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if applyMinutes < 0 {
		return fmt.Errorf("minutes must not be negative")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	snapshots, closeStore, err := newStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer closeStore()

	rev, err := snapshots.Load(ctx)
	if err != nil {
		if errors.Is(err, corestore.ErrNoSnapshot) {
			return fmt.Errorf("no saved schedule to edit")
		}
		return err
	}

	svc := app.New(app.Options{
		Cascade: cfg.Cascade,
		Store:   snapshots,
		Log:     logger.New("apply"),
	})
	svc.SetSchedule(rev.Schedule)

	next, err := svc.ApplyRecoveryEdit(ctx, applyTrip, applyTimepoint, applyMinutes)
	if err != nil {
		return err
	}

	switch applyFormat {
	case "json":
		return export.WriteJSON(cmd.OutOrStdout(), next)
	case "csv":
		return export.WriteCSV(cmd.OutOrStdout(), next)
	case "":
		fmt.Fprintf(cmd.OutOrStdout(), "trip %d updated, %d trips in schedule\n", applyTrip, len(next.Trips))
		return nil
	default:
		return fmt.Errorf("unsupported output format %s", applyFormat)
	}
}
