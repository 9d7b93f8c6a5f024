package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	scraper "github.com/anxhirr/product-scraper"
	"github.com/anxhirr/product-scraper/config"
)

// tokenEnvVar names the environment variable holding the optional bearer
// token for the job service.
const tokenEnvVar = "SCRAPER_API_TOKEN"

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// runCmd submits a batch and polls it to completion.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit a batch of items and poll the job to completion",
	Long: `Submit a batch of product lookups and poll the resulting job to
completion, printing the final per-item results as JSON on stdout.

The items file is a JSON array of objects with "name" and "brand" keys.
With --retry-failed, items that ended in error are resubmitted once as a
single retry job before the results are printed.

The command runs until the job finishes or it is interrupted (Ctrl+C).

Example:
  product-scraper run -c scraper.yaml -i items.json
  product-scraper run -c scraper.yaml -i items.json --retry-failed`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	runCmd.Flags().StringP("items", "i", "", "path to items JSON file (required)")
	runCmd.Flags().Bool("retry-failed", false, "retry failed items once after completion")
	_ = runCmd.MarkFlagRequired("config")
	_ = runCmd.MarkFlagRequired("items")
}

// slotOutput is the stdout representation of one final slot.
type slotOutput struct {
	Index   int            `json:"index"`
	Name    string         `json:"name"`
	Brand   string         `json:"brand"`
	Status  string         `json:"status"`
	Product *productOutput `json:"product,omitempty"`
	Message string         `json:"message,omitempty"`
}

type productOutput struct {
	Title          string   `json:"title"`
	SKU            string   `json:"sku"`
	Price          string   `json:"price"`
	Description    string   `json:"description"`
	Specifications string   `json:"specifications"`
	Images         []string `json:"images,omitempty"`
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	// .env is optional; environment variables win when both are set
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", "error", err.Error())
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	itemsFile, _ := cmd.Flags().GetString("items")
	items, err := loadItems(itemsFile)
	if err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("items file %s contains no items", itemsFile)
	}

	logger.Info("config loaded",
		"base_url", cfg.BaseURL,
		"poll_interval", cfg.PollInterval.Duration().String(),
		"items", len(items),
	)

	terminal := make(chan scraper.Event, 1)
	opts := append(cfg.Options(),
		scraper.WithLogger(logger),
		scraper.WithEventCallback(func(ev scraper.Event) {
			switch ev.Type {
			case scraper.EventSlotResolved:
				logger.Info("item resolved",
					"index", ev.Index,
					"name", ev.Slot.Item.Name,
					"status", string(ev.Slot.Status),
				)
			case scraper.EventJobCompleted, scraper.EventJobFailed:
				select {
				case terminal <- ev:
				default:
				}
			}
		}),
	)
	if token := os.Getenv(tokenEnvVar); token != "" {
		opts = append(opts, scraper.WithToken(token))
	}

	eng, err := scraper.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Close()

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := eng.Submit(ctx, items); err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}
	logger.Info("job submitted", "job_id", eng.JobID())

	select {
	case ev := <-terminal:
		if ev.Type == scraper.EventJobFailed {
			logger.Warn("job failed", "job_id", ev.JobID, "error", ev.Message)
		}
	case <-ctx.Done():
		logger.Warn("interrupted, abandoning job", "job_id", eng.JobID())
		return printResults(eng.Slots())
	}

	retryFailed, _ := cmd.Flags().GetBool("retry-failed")
	if retryFailed && failedCount(eng.Slots()) > 0 {
		logger.Info("retrying failed items", "count", failedCount(eng.Slots()))
		if err := eng.RetryAll(ctx); err != nil {
			logger.Warn("retry did not fully succeed", "error", err.Error())
		}
	}

	slots := eng.Slots()
	if err := printResults(slots); err != nil {
		return err
	}
	if n := failedCount(slots); n > 0 {
		return fmt.Errorf("%d of %d items failed", n, len(slots))
	}
	logger.Info("all items resolved", "count", len(slots))
	return nil
}

// loadItems reads the items JSON file: an array of {"name", "brand"}.
func loadItems(path string) ([]scraper.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []scraper.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return items, nil
}

// printResults writes the final slots to stdout as indented JSON.
func printResults(slots []scraper.Slot) error {
	out := make([]slotOutput, len(slots))
	for i, slot := range slots {
		out[i] = slotOutput{
			Index:   i,
			Name:    slot.Item.Name,
			Brand:   slot.Item.Brand,
			Status:  string(slot.Status),
			Message: slot.Message,
		}
		if p := slot.Product; p != nil {
			out[i].Product = &productOutput{
				Title:          p.Title,
				SKU:            p.SKU,
				Price:          p.Price,
				Description:    p.Description,
				Specifications: p.Specifications,
				Images:         p.Images,
			}
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// failedCount returns the number of slots in the error state.
func failedCount(slots []scraper.Slot) int {
	n := 0
	for _, slot := range slots {
		if slot.Status == scraper.SlotError {
			n++
		}
	}
	return n
}
