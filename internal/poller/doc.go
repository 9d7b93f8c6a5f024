// Package poller provides a generic repeating-invocation engine for watching
// long-running remote jobs.
//
// A [Poller] runs a supplied fetch operation on a fixed cadence, delivering
// each outcome to callbacks, until a stop condition holds: explicit Stop,
// context cancellation, the stop predicate reporting a terminal snapshot, a
// wall-clock bound, or a cycle-count bound.
//
// Cycles are strictly sequential: there is never more than one in-flight
// fetch per Poller, and a tick that elapses while a fetch is outstanding is
// discarded rather than queued.
//
// The poller is job-agnostic. It owns no business state beyond the loop
// itself; interpretation of snapshots belongs to the callbacks.
package poller
