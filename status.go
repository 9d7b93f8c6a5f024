package scraper

// JobState is the engine's view of the current job's lifecycle.
//
// States progress Idle → Submitted → Polling → {Completed, Failed}. Idle
// is both the entry and the reset state: a failed submission returns to
// it, and any new submission discards the prior batch and starts over
// with a fresh job id.
type JobState string

const (
	// StateIdle means no job is active.
	StateIdle JobState = "idle"

	// StateSubmitted means a submission is in flight; it advances to
	// [StatePolling] on success or back to [StateIdle] on failure.
	StateSubmitted JobState = "submitted"

	// StatePolling means the job was accepted and the engine is merging
	// status snapshots into the batch.
	StatePolling JobState = "polling"

	// StateCompleted means the job reported a terminal completed status.
	StateCompleted JobState = "completed"

	// StateFailed means the job failed, either job-level on the service
	// or through a polling timeout.
	StateFailed JobState = "failed"
)

// String returns the string representation of the state.
// This implements the fmt.Stringer interface.
func (s JobState) String() string {
	return string(s)
}

// EventType discriminates the [Event] variants emitted by the engine.
type EventType string

const (
	// EventSlotResolved fires when a slot gains or changes a terminal
	// result, from either the main poller or a retry.
	EventSlotResolved EventType = "slot_resolved"

	// EventJobCompleted fires once when the current job completes.
	EventJobCompleted EventType = "job_completed"

	// EventJobFailed fires once when the current job fails, carrying the
	// job-level message.
	EventJobFailed EventType = "job_failed"
)

// Event is a structured notification from the engine.
//
// The engine is free of presentation concerns; a consuming layer decides
// how to surface events. Events are delivered synchronously to callbacks
// registered via [WithEventCallback], in registration order.
type Event struct {
	// Type discriminates which fields below are meaningful.
	Type EventType

	// JobID identifies the job the event belongs to.
	JobID string

	// Index is the batch position of the resolved slot.
	// Set for [EventSlotResolved].
	Index int

	// Slot is the resolved slot's state at emission time.
	// Set for [EventSlotResolved].
	Slot Slot

	// Message is the job-level failure reason.
	// Set for [EventJobFailed].
	Message string
}
