package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/parkcast/app"
)

var nowFlag string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Infer zones, build the availability model, forecast and publish",
	RunE:  runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&nowFlag, "now", "", "RFC3339 reference time of the forecast horizon (default: current time)")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	var now time.Time
	if nowFlag != "" {
		t, err := time.Parse(time.RFC3339, nowFlag)
		if err != nil {
			return fmt.Errorf("--now: %w", err)
		}
		now = t
	}
	return withService(func(ctx context.Context, svc *app.Service) error {
		b, err := svc.Run(ctx, now)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d bays, %d zones, %d forecasts (%d null points)\n",
			b.RunID, len(b.Bays), len(b.Centroids), len(b.Forecast.Series), b.Forecast.NullPoints)
		return err
	})
}
