package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mikermcconnell/BusScheduler-sub001/api"
	"github.com/mikermcconnell/BusScheduler-sub001/app"
	"github.com/mikermcconnell/BusScheduler-sub001/config"
	"github.com/mikermcconnell/BusScheduler-sub001/infra/logger"
	"github.com/mikermcconnell/BusScheduler-sub001/infra/metrics"
	"github.com/mikermcconnell/BusScheduler-sub001/infra/notify"
	"github.com/mikermcconnell/BusScheduler-sub001/internal/eventbus"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the schedule editing API",
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New("serve")

	snapshots, closeStore, err := newStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer closeStore()

	sink, err := metrics.NewSink(cfg.Metrics)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if cfg.Metrics.PrometheusEnabled && cfg.Metrics.PrometheusPort != "" {
		promSrv := metrics.StartPromServer(cfg.Metrics.PrometheusPort)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = promSrv.Shutdown(shutdownCtx)
		}()
	}

	bus := eventbus.NewEditBus()
	defer bus.Close()

	if cfg.MQTT.Enabled {
		notifier, err := notify.NewMQTTNotifier(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("mqtt notifier: %w", err)
		}
		notifier.Run(bus.Subscribe())
		defer notifier.Close()
	}

	svc := app.New(app.Options{
		Cascade:              cfg.Cascade,
		Store:                snapshots,
		Bus:                  bus,
		Sink:                 sink,
		Log:                  logger.New("service"),
		SegmentTravelMinutes: cfg.Trips.SegmentTravelMinutes,
	})
	if err := svc.LoadFromStore(ctx); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           api.NewServer(svc, logger.New("api")).Handler(),
		ReadHeaderTimeout: time.Duration(cfg.API.ReadTimeoutSeconds) * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("API listening on %s", cfg.API.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
