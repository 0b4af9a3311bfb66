package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"watchtower/internal/app"
	"watchtower/internal/jobs/detector"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run one suspicious-IP detection pass over the trailing window",
	RunE:  runDetect,
}

func runDetect(cmd *cobra.Command, _ []string) error {
	if err := app.SetupCore(); err != nil {
		return err
	}

	summary := detector.FromConfig().DetectSuspiciousIPs(context.Background(), time.Now())

	fmt.Fprintf(cmd.OutOrStdout(), "high volume IPs flagged: %d\n", summary.HighVolume)
	fmt.Fprintf(cmd.OutOrStdout(), "sensitive path IPs flagged: %d\n", summary.SensitivePaths)

	return nil
}
