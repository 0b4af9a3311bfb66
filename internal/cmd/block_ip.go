package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"watchtower/internal/app"
	"watchtower/internal/blocklist"
)

var (
	blockReason     string
	blockDeactivate bool
)

var blockIPCmd = &cobra.Command{
	Use:   "block-ip <ip>...",
	Short: "Add IP addresses to the blocklist, or deactivate existing entries",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBlockIP,
}

func init() {
	blockIPCmd.Flags().StringVar(&blockReason, "reason", "", "Reason for blocking the IP address(es)")
	blockIPCmd.Flags().BoolVar(&blockDeactivate, "deactivate", false, "Deactivate (unblock) instead of blocking")
}

func runBlockIP(cmd *cobra.Command, args []string) error {
	if err := app.SetupCore(); err != nil {
		return err
	}

	results := blocklist.Apply(context.Background(), args, blockReason, blockDeactivate)

	for _, res := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", res.IP, res.Outcome)
	}

	return nil
}
