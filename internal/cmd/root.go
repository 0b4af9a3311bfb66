// Package cmd defines the watchtower command tree.
package cmd

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:          "watchtower",
	Short:        "Request telemetry and abusive-IP detection service",
	SilenceUsage: true,
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(blockIPCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(suspiciousCmd)
}
