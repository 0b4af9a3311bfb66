package main

import (
	"watchtower/internal/cmd"

	"github.com/charmbracelet/log"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal("application terminated", "error", err)
	}
}
