// Package main is the entry point for the product-scraper CLI.
//
// The engine can be used either as a library (SDK) or as a standalone
// binary with YAML configuration. This CLI provides the standalone binary
// approach.
//
// Usage:
//
//	product-scraper run -c config.yaml -i items.json  # Run a batch job
//	product-scraper validate -c config.yaml           # Validate configuration
//	product-scraper version                           # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "product-scraper",
	Short: "Drive bulk product-scrape jobs on a remote scraping service",
	Long: `product-scraper submits a batch of product lookups to a remote
scraping service, polls the job to completion and reconciles partial
results into a local view, with selective retry of failed items.

Quick start:
  1. Create a config file (scraper.yaml) pointing at the service
  2. Put your items in a JSON file: [{"name": "wooden train", "brand": "hape"}]
  3. Run: product-scraper run -c scraper.yaml -i items.json

Example config:
  base_url: https://scraper.example.com
  poll_interval: 2s
  concurrency: 3`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this product-scraper binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("product-scraper %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
