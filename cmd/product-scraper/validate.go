package main

import (
	"fmt"

	"github.com/anxhirr/product-scraper/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without contacting the job service.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a product-scraper configuration file without submitting anything.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  product-scraper validate -c scraper.yaml
  product-scraper validate --config /etc/product-scraper/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Base URL:          %s\n", cfg.BaseURL)
	fmt.Printf("  Poll interval:     %s\n", cfg.PollInterval.Duration())
	fmt.Printf("  Max poll duration: %s\n", cfg.MaxPollDuration.Duration())
	fmt.Printf("  Retry cycle cap:   %d\n", cfg.RetryCycleCap)

	return nil
}
