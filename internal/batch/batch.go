package batch

import (
	"sync"

	"github.com/anxhirr/product-scraper/internal/job"
)

// SlotStatus is the client-side state of one slot.
type SlotStatus string

const (
	// SlotPending means no terminal result has been observed yet.
	SlotPending SlotStatus = "pending"

	// SlotSuccess means the item resolved with a scraped product.
	SlotSuccess SlotStatus = "success"

	// SlotError means the item resolved with a failure message.
	SlotError SlotStatus = "error"
)

// Resolved reports whether the status is terminal for the slot.
func (s SlotStatus) Resolved() bool {
	return s == SlotSuccess || s == SlotError
}

// Slot tracks one submitted item's status within a batch.
type Slot struct {
	// Status is the slot's current state.
	Status SlotStatus

	// Product is the scraped payload when Status is [SlotSuccess].
	Product *job.Product

	// Message is the failure reason when Status is [SlotError].
	Message string

	// Item is the originating input record. It is client-only metadata:
	// it is never derived from a server snapshot and survives every merge.
	Item job.Item
}

// Batch is the authoritative local result list for one submission.
//
// Slots are index-aligned with the submitted items. The batch length is
// fixed at submission and only grows if the server reports more slots than
// previously observed; it is never truncated.
//
// Batch is mutated only through the merge and splice methods below, which
// enforce the monotonic merge rule: a resolved slot is never regressed to
// pending by a later observation. This is what makes the race between the
// main status poller and individually retried sub-jobs safe — whichever
// source observes a slot's terminal result first wins.
//
// All methods are safe for concurrent use.
type Batch struct {
	mu    sync.Mutex
	slots []Slot
}

// New creates a [Batch] with one pending slot per submitted item, carrying
// the item as slot metadata.
func New(items []job.Item) *Batch {
	slots := make([]Slot, len(items))
	for i, item := range items {
		slots[i] = Slot{Status: SlotPending, Item: item}
	}
	return &Batch{slots: slots}
}

// Len returns the current number of slots.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots)
}

// Slots returns a snapshot copy of all slots.
//
// The returned slice is a copy; modifying it does not affect the batch.
func (b *Batch) Slots() []Slot {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]Slot, len(b.slots))
	copy(cp, b.slots)
	return cp
}

// Slot returns the slot at idx and whether it exists.
func (b *Batch) Slot(idx int) (Slot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx < 0 || idx >= len(b.slots) {
		return Slot{}, false
	}
	return b.slots[idx], true
}

// ErrorIndices returns the indices of every slot currently in [SlotError].
func (b *Batch) ErrorIndices() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	var idxs []int
	for i, s := range b.slots {
		if s.Status == SlotError {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// Merge folds a status snapshot's results array into the batch.
//
// The per-index rule:
//  1. A nil (pending) entry leaves the existing slot unchanged; if no local
//     slot exists at that index yet, a pending one is appended.
//  2. A nil entry never regresses an already-resolved slot. This occurs
//     when a retry resolves a slot faster than the next main-poll
//     observation.
//  3. A resolved entry overwrites the local slot only if status, payload or
//     message actually differ, keeping the merge idempotent.
//  4. Slot metadata is always carried forward from the prior slot.
//
// Entries beyond the snapshot's length are left untouched; a snapshot
// shorter than the batch never truncates local state.
//
// Merge returns the indices that newly hold a (changed) terminal result and
// whether any slot differs from before, so callers can skip redundant
// downstream work on a no-op merge.
func (b *Batch) Merge(entries []*job.Entry) (resolved []int, changed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range entries {
		if i >= len(b.slots) {
			// batch growth: the server reported more slots than observed
			slot := Slot{Status: SlotPending}
			if e != nil {
				applyEntry(&slot, e)
				resolved = append(resolved, i)
			}
			b.slots = append(b.slots, slot)
			changed = true
			continue
		}

		if e == nil {
			// pending observation: never regress a resolved slot
			continue
		}

		if entryEqual(&b.slots[i], e) {
			continue
		}
		applyEntry(&b.slots[i], e)
		resolved = append(resolved, i)
		changed = true
	}
	return resolved, changed
}

// Resolve splices a terminal result back into the slot at idx, preserving
// the slot's metadata. It is used to merge a retry job's outcome at the
// original batch position. Returns false if idx is out of range or the
// entry does not differ from the current slot.
func (b *Batch) Resolve(idx int, e *job.Entry) bool {
	if e == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx < 0 || idx >= len(b.slots) {
		return false
	}
	if entryEqual(&b.slots[idx], e) {
		return false
	}
	applyEntry(&b.slots[idx], e)
	return true
}

// MarkPending returns the slot at idx to [SlotPending], clearing any prior
// result but keeping its metadata. Used when a retry is submitted for it.
func (b *Batch) MarkPending(idx int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx < 0 || idx >= len(b.slots) {
		return
	}
	b.slots[idx].Status = SlotPending
	b.slots[idx].Product = nil
	b.slots[idx].Message = ""
}

// SetError puts the slot at idx into [SlotError] with the given message.
func (b *Batch) SetError(idx int, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx < 0 || idx >= len(b.slots) {
		return
	}
	b.slots[idx].Status = SlotError
	b.slots[idx].Product = nil
	b.slots[idx].Message = msg
}

// FailPending marks every still-pending slot as [SlotError] with msg and
// returns the affected indices. Used to fan a job-level failure out to the
// slots it covers.
func (b *Batch) FailPending(msg string) []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	var idxs []int
	for i := range b.slots {
		if b.slots[i].Status == SlotPending {
			b.slots[i].Status = SlotError
			b.slots[i].Product = nil
			b.slots[i].Message = msg
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// applyEntry writes a resolved entry into the slot. The slot's Item field
// is deliberately untouched.
func applyEntry(slot *Slot, e *job.Entry) {
	switch e.Status {
	case string(SlotSuccess):
		slot.Status = SlotSuccess
		slot.Product = copyProduct(e.Product)
		slot.Message = ""
	default:
		slot.Status = SlotError
		slot.Product = nil
		slot.Message = e.Message
	}
}

// entryEqual reports whether the resolved entry carries the same terminal
// result the slot already holds.
func entryEqual(slot *Slot, e *job.Entry) bool {
	if string(slot.Status) != e.Status {
		return false
	}
	switch slot.Status {
	case SlotSuccess:
		return productEqual(slot.Product, e.Product)
	case SlotError:
		return slot.Message == e.Message
	default:
		return false
	}
}

func productEqual(a, b *job.Product) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Title != b.Title || a.SKU != b.SKU || a.Price != b.Price ||
		a.Description != b.Description || a.Specifications != b.Specifications {
		return false
	}
	if len(a.Images) != len(b.Images) {
		return false
	}
	for i := range a.Images {
		if a.Images[i] != b.Images[i] {
			return false
		}
	}
	return true
}

// copyProduct returns a deep copy so later snapshot mutations by the caller
// cannot reach into batch state.
func copyProduct(p *job.Product) *job.Product {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Images != nil {
		cp.Images = append([]string(nil), p.Images...)
	}
	return &cp
}
