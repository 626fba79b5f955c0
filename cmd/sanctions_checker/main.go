// Package main provides the entry point for the sanctions checker CLI and
// HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sanctions_checker",
	Short: "Screen company names against public sanctions lists",
	Long: `Sanctions Checker downloads the OFAC, EU, UK and UN sanctions lists, extracts the
listed names and fuzzy-matches them against the company names of a spreadsheet.

The result is an Excel report with one Yes/No column per list. The same pipeline
is available over HTTP with the serve command.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
