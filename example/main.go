package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	scraper "github.com/anxhirr/product-scraper"
)

func main() {
	// start mock job service (see mock_server.go)
	go StartMockJobServer(":9999")
	time.Sleep(100 * time.Millisecond)

	done := make(chan struct{}, 1)

	eng, err := scraper.New(
		scraper.WithBaseURL("http://localhost:9999"),
		scraper.WithPollInterval(500*time.Millisecond),
		scraper.WithInitialDelay(200*time.Millisecond),
		scraper.WithEventCallback(func(ev scraper.Event) {
			switch ev.Type {
			case scraper.EventSlotResolved:
				fmt.Printf("  [%d] %-28s %s\n", ev.Index, ev.Slot.Item.Name, ev.Slot.Status)
			case scraper.EventJobCompleted, scraper.EventJobFailed:
				select {
				case done <- struct{}{}:
				default:
				}
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create engine", "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	// "flaky" items fail on the first job and succeed when retried
	items := []scraper.Item{
		{Name: "wooden rainbow stacker", Brand: "hape"},
		{Name: "flaky dollhouse kit", Brand: "liewood"},
		{Name: "balance bike 12in", Brand: "hape"},
	}

	ctx := context.Background()
	if err := eng.Submit(ctx, items); err != nil {
		slog.Error("submission failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("\nsubmitted %d items as %s\n\n", len(items), eng.JobID())
	<-done

	fmt.Println("\njob finished, retrying failed items...")
	if err := eng.RetryAll(ctx); err != nil {
		slog.Error("retry failed", "error", err)
	}

	fmt.Println("\nfinal results:")
	for i, slot := range eng.Slots() {
		switch slot.Status {
		case scraper.SlotSuccess:
			fmt.Printf("  [%d] %-28s %s (%s)\n", i, slot.Item.Name, slot.Product.Title, slot.Product.SKU)
		case scraper.SlotError:
			fmt.Printf("  [%d] %-28s error: %s\n", i, slot.Item.Name, slot.Message)
		default:
			fmt.Printf("  [%d] %-28s still pending\n", i, slot.Item.Name)
		}
	}
}
