package batch

import "sync"

// Registry tracks slot indices currently under retry.
//
// Its invariant: an index present in the registry cannot be acquired again
// until released, so at most one retry is ever in flight per index. A bulk
// acquisition additionally excludes every individual acquisition for its
// whole duration, and vice versa for the indices it would cover.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	inflight map[int]struct{}
	bulk     bool
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{inflight: make(map[int]struct{})}
}

// Acquire reserves idx for an individual retry.
//
// It fails if idx is already under retry or a bulk retry is in flight.
// The caller must Release the index when the retry finishes, whatever its
// outcome.
func (r *Registry) Acquire(idx int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bulk {
		return false
	}
	if _, ok := r.inflight[idx]; ok {
		return false
	}
	r.inflight[idx] = struct{}{}
	return true
}

// Release removes idx from the registry. Safe to call for an index that is
// not present.
func (r *Registry) Release(idx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, idx)
}

// AcquireBulk reserves all idxs for a bulk retry.
//
// It fails without reserving anything if another bulk retry is in flight or
// any of the indices is already under an individual retry.
func (r *Registry) AcquireBulk(idxs []int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bulk {
		return false
	}
	for _, idx := range idxs {
		if _, ok := r.inflight[idx]; ok {
			return false
		}
	}
	r.bulk = true
	for _, idx := range idxs {
		r.inflight[idx] = struct{}{}
	}
	return true
}

// ReleaseBulk ends the bulk retry and releases all idxs.
func (r *Registry) ReleaseBulk(idxs []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bulk = false
	for _, idx := range idxs {
		delete(r.inflight, idx)
	}
}

// Empty reports whether no retry is in flight.
func (r *Registry) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.bulk && len(r.inflight) == 0
}
