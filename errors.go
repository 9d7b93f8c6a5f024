package scraper

import "errors"

// Sentinel errors returned by [Engine] operations. Use errors.Is to
// classify; returned errors may wrap these with additional context.
var (
	// ErrNoBatch means no batch has been submitted yet.
	ErrNoBatch = errors.New("no batch submitted")

	// ErrNotRetryable means the targeted slot is not in the error state.
	ErrNotRetryable = errors.New("slot is not in error state")

	// ErrRetryConflict means the requested retry overlaps one already in
	// flight: the index is mid-retry, a bulk retry covers it, or a bulk
	// retry was requested while the main job is still polling. The
	// request is rejected locally before any network call.
	ErrRetryConflict = errors.New("conflicting retry in flight")

	// ErrRetryTimeout means a retry's bounded cycle cap was exhausted.
	// The affected slots are marked with a local error state, though the
	// remote job may still be running.
	ErrRetryTimeout = errors.New("retry polling exhausted its cycle cap")
)
