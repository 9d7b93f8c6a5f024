// Package job holds the domain types shared between the scraping-service
// client and the batch state: input items, scraped products, per-slot result
// entries and the job-level status vocabulary.
package job

// Status is the job-level status reported by the scraping service.
type Status string

const (
	// StatusRunning means the service is still working through the batch.
	StatusRunning Status = "running"

	// StatusCompleted means every item has a terminal per-item result.
	StatusCompleted Status = "completed"

	// StatusFailed means the job as a whole failed; per-item results may
	// be partial or absent.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status ends polling.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Item is one requested product lookup as submitted by the caller.
type Item struct {
	// Name is the product name or search query.
	Name string `json:"name"`

	// Brand selects the brand/site catalog the service scrapes from.
	Brand string `json:"brand"`
}

// Product is the scraped data for one successfully resolved item.
type Product struct {
	Title          string   `json:"title"`
	SKU            string   `json:"sku"`
	Price          string   `json:"price"`
	Description    string   `json:"description"`
	Specifications string   `json:"specifications"`
	Images         []string `json:"images"`
}

// Entry is one resolved element of a status snapshot's results array.
// A nil *Entry in the array is the sole pending signal; the service has no
// distinct per-item "in progress" state.
type Entry struct {
	// Status is "success" or "error".
	Status string `json:"status"`

	// Product carries the payload when Status is "success".
	Product *Product `json:"product,omitempty"`

	// Message carries the failure reason when Status is "error".
	Message string `json:"message,omitempty"`
}

// Snapshot is one point-in-time response from the status endpoint.
type Snapshot struct {
	// Status is the job-level status.
	Status Status `json:"status"`

	// Progress is the integer percentage of resolved items.
	Progress int `json:"progress"`

	// Total is the number of items the service accepted.
	Total int `json:"total"`

	// Message is the job-level failure reason when Status is "failed".
	Message string `json:"error,omitempty"`

	// Results is index-aligned with the submitted items. It is the same
	// length as, or growing toward, the submitted batch; nil elements
	// mean pending.
	Results []*Entry `json:"results"`

	// OriginalItems echoes the submitted items for correlation.
	OriginalItems []Item `json:"original_items,omitempty"`
}
