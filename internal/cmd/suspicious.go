package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"watchtower/internal/app"
	"watchtower/internal/database"
)

var suspiciousAll bool

var suspiciousCmd = &cobra.Command{
	Use:   "suspicious",
	Short: "List flagged suspicious IPs",
	RunE:  runSuspicious,
}

func init() {
	suspiciousCmd.Flags().BoolVar(&suspiciousAll, "all", false, "Include inactive classifications")
}

func runSuspicious(cmd *cobra.Command, _ []string) error {
	if err := app.SetupCore(); err != nil {
		return err
	}

	rows, err := database.ListSuspiciousIPs(context.Background(), !suspiciousAll)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no suspicious IPs flagged")
		return nil
	}

	for _, row := range rows {
		state := "active"
		if !row.IsActive {
			state = "inactive"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
			row.IPAddress,
			row.Reason,
			row.DetectedAt.Format("2006-01-02 15:04:05"),
			state,
		)
	}

	return nil
}
