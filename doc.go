// Package scraper provides a client-side engine for driving long-running
// bulk product-scrape jobs on a remote scraping service.
//
// The engine maintains a consistent, monotonically progressing local view
// of a job's partial results while two independent sources race over it:
// the main status poller and individually retried sub-jobs. A resolved
// slot is never overwritten with a pending observation, a retry is never
// double-submitted for the same slot, and replacing a job never leaks
// timers or lets a stale callback mutate state.
//
// # Quick Start
//
// Create an [Engine], submit a batch, and watch events until the job
// reaches a terminal state:
//
//	eng, err := scraper.New(
//	    scraper.WithBaseURL("https://scraper.example.com"),
//	    scraper.WithEventCallback(func(ev scraper.Event) {
//	        if ev.Type == scraper.EventJobCompleted {
//	            // consume eng.Slots()
//	        }
//	    }),
//	)
//	if err != nil {
//	    slog.Error("failed to create engine", "error", err)
//	    os.Exit(1)
//	}
//	defer eng.Close()
//
//	err = eng.Submit(ctx, items)
//
// Failed slots can be resubmitted individually with [Engine.Retry] or
// together with [Engine.RetryAll]; results are spliced back at their
// original batch positions.
//
// # Configuration
//
// The engine uses the functional options pattern for configuration:
//
//	eng, err := scraper.New(
//	    scraper.WithBaseURL("https://scraper.example.com"),
//	    scraper.WithPollInterval(2 * time.Second),
//	    scraper.WithMaxPollDuration(10 * time.Minute),
//	    scraper.WithRetryCycleCap(100),
//	)
//
// # Architecture
//
// The engine consists of several internal packages (under internal/):
//
//   - internal/poller: generic repeating-invocation loop with overlap
//     protection, wall-clock and cycle bounds
//   - internal/batch: index-aligned batch state with the monotonic merge
//     rule, and the registry of in-flight retries
//   - internal/client: HTTP client for the job service's submit and
//     status endpoints
//   - internal/job: domain types shared between client and batch
//
// The internal packages are not part of the public API and may change
// without notice.
package scraper
