package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/parkcast/app"
)

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "Infer zones and publish the zone map and centroids",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(func(ctx context.Context, svc *app.Service) error {
			b, err := svc.Zones(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d bays, %d zones\n", b.RunID, len(b.Bays), len(b.Centroids))
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(zonesCmd)
}
