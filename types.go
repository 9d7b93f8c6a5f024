package scraper

import (
	"github.com/anxhirr/product-scraper/internal/batch"
	"github.com/anxhirr/product-scraper/internal/job"
)

// Item is one requested product lookup in a batch submission.
type Item struct {
	// Name is the product name or search query.
	Name string

	// Brand selects the brand/site catalog the service scrapes from.
	Brand string
}

// Product is the scraped data for one successfully resolved item.
type Product struct {
	Title          string
	SKU            string
	Price          string
	Description    string
	Specifications string
	Images         []string
}

// SlotStatus is the client-side state of one batch slot.
type SlotStatus string

const (
	// SlotPending means no terminal result has been observed yet.
	SlotPending SlotStatus = "pending"

	// SlotSuccess means the item resolved with a scraped product.
	SlotSuccess SlotStatus = "success"

	// SlotError means the item resolved with a failure message.
	SlotError SlotStatus = "error"
)

// Slot tracks one submitted item's status within a batch.
//
// Slots are index-aligned with the items passed to [Engine.Submit]. The
// Item field is client-only metadata: it is never derived from a server
// response and survives every merge and retry.
type Slot struct {
	// Status is the slot's current state.
	Status SlotStatus

	// Product is the scraped payload when Status is [SlotSuccess].
	Product *Product

	// Message is the failure reason when Status is [SlotError].
	Message string

	// Item is the originating input record.
	Item Item
}

// toJobItems converts public items to the internal wire representation.
func toJobItems(items []Item) []job.Item {
	out := make([]job.Item, len(items))
	for i, it := range items {
		out[i] = job.Item{Name: it.Name, Brand: it.Brand}
	}
	return out
}

// toPublicSlot converts an internal slot to the public API type, with
// defensive copies of mutable fields.
func toPublicSlot(s batch.Slot) Slot {
	return Slot{
		Status:  SlotStatus(s.Status),
		Product: toPublicProduct(s.Product),
		Message: s.Message,
		Item:    Item{Name: s.Item.Name, Brand: s.Item.Brand},
	}
}

func toPublicProduct(p *job.Product) *Product {
	if p == nil {
		return nil
	}
	out := &Product{
		Title:          p.Title,
		SKU:            p.SKU,
		Price:          p.Price,
		Description:    p.Description,
		Specifications: p.Specifications,
	}
	if p.Images != nil {
		out.Images = append([]string(nil), p.Images...)
	}
	return out
}
