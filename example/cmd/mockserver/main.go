// Standalone mock scrape-job server for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/product-scraper run -c example/config.yaml -i example/items.json
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const resolveEvery = 400 * time.Millisecond

type mockJob struct {
	items     []mockItem
	createdAt time.Time
}

type mockItem struct {
	Name  string `json:"name"`
	Brand string `json:"brand"`
}

func main() {
	fmt.Println("Mock scrape-job server starting on :9999")
	fmt.Println("Jobs resolve one item every 400ms")
	fmt.Println("Items named *flaky* fail once, then succeed on retry")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		mu     sync.Mutex
		jobs   = make(map[string]*mockJob)
		failed = make(map[string]bool)
		nextID int
	)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/batch-search", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Items []mockItem `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		mu.Lock()
		nextID++
		id := fmt.Sprintf("mock-job-%d", nextID)
		jobs[id] = &mockJob{items: req.Items, createdAt: time.Now()}
		mu.Unlock()

		slog.Info("mock job created", "job_id", id, "items", len(req.Items))
		writeJSON(w, map[string]string{"job_id": id})
	})

	mux.HandleFunc("GET /api/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		j, ok := jobs[r.PathValue("id")]
		if !ok {
			http.Error(w, "unknown job", http.StatusNotFound)
			return
		}

		total := len(j.items)
		done := int(time.Since(j.createdAt) / resolveEvery)
		if done > total {
			done = total
		}

		results := make([]any, total)
		for i := 0; i < done; i++ {
			item := j.items[i]
			if strings.Contains(item.Name, "flaky") && !failed[item.Name] {
				failed[item.Name] = true
				results[i] = map[string]any{
					"status":  "error",
					"message": "scrape timed out",
				}
				continue
			}
			results[i] = map[string]any{
				"status": "success",
				"product": map[string]any{
					"title":          item.Name,
					"sku":            fmt.Sprintf("%s-%03d", strings.ToUpper(item.Brand), i+1),
					"price":          "49.95",
					"description":    "Mock product for " + item.Name,
					"specifications": "Color: natural; Material: wood",
					"images":         []string{"https://example.com/" + item.Brand + "/img.jpg"},
				},
			}
		}

		status := "running"
		if done == total {
			status = "completed"
		}
		writeJSON(w, map[string]any{
			"status":         status,
			"progress":       done * 100 / total,
			"total":          total,
			"results":        results,
			"original_items": j.items,
		})
	})

	if err := http.ListenAndServe(":9999", mux); err != nil {
		slog.Error("mock job server failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
