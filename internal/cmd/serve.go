package cmd

import (
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"watchtower/internal/app"
)

const defaultPort = 8080

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tracking API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", defaultPort, "Port for the API server")
}

func runServe(_ *cobra.Command, _ []string) error {
	return app.Run(resolvePort(servePort))
}

func resolvePort(flagValue int) int {
	raw := os.Getenv("PORT")
	if raw == "" {
		return flagValue
	}

	port, err := strconv.Atoi(raw)
	if err != nil || port == 0 {
		log.Warn("invalid port override", "env", "PORT", "value", raw)
		return flagValue
	}
	return port
}
