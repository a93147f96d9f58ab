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
	"github.com/mikermcconnell/BusScheduler-sub001/core/validate"
	"github.com/mikermcconnell/BusScheduler-sub001/infra/logger"
)

var validateFix bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report schedule consistency violations",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateFix, "fix", false, "repair block assignment and tail recovery, then save")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New("validate")

	snapshots, closeStore, err := newStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer closeStore()

	rev, err := snapshots.Load(ctx)
	if err != nil {
		if errors.Is(err, corestore.ErrNoSnapshot) {
			return fmt.Errorf("no saved schedule to validate")
		}
		return err
	}

	violations := validate.Report(rev.Schedule)
	for _, v := range violations {
		fmt.Fprintln(cmd.OutOrStdout(), v)
	}
	if len(violations) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "schedule is consistent")
		return nil
	}
	if !validateFix {
		return fmt.Errorf("%d violations found", len(violations))
	}

	svc := app.New(app.Options{
		Cascade: cfg.Cascade,
		Store:   snapshots,
		Log:     log,
	})
	svc.SetSchedule(rev.Schedule)
	if _, _, err := svc.ReassignBlocksIfNeeded(ctx); err != nil {
		return fmt.Errorf("reassign blocks: %w", err)
	}
	if _, err := svc.EnforceTailRecoveryRules(ctx); err != nil {
		return fmt.Errorf("enforce tail recovery: %w", err)
	}
	remaining := validate.Report(svc.Schedule())
	log.Infof("repaired schedule: %d violations remain", len(remaining))
	return nil
}
