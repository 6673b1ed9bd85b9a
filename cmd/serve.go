package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/parkcast/api/forecasts"
	"github.com/kilianp07/parkcast/config"
	"github.com/kilianp07/parkcast/core/forecast"
	"github.com/kilianp07/parkcast/infra/logger"
	"github.com/kilianp07/parkcast/infra/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve published forecasts and Prometheus metrics",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return err
	}
	store, err := forecast.LoadStore(cfg.Serve.ForecastPath, cfg.Serve.CentroidsPath)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return forecasts.Serve(ctx, cfg.Serve.Addr, store, logger.New("api"))
	})
	if cfg.Serve.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.StartPromServer(ctx, cfg.Serve.MetricsAddr)
		})
	}
	return g.Wait()
}
