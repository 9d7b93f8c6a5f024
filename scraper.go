package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anxhirr/product-scraper/internal/batch"
	"github.com/anxhirr/product-scraper/internal/client"
	"github.com/anxhirr/product-scraper/internal/job"
	"github.com/anxhirr/product-scraper/internal/poller"
)

const (
	defaultHTTPTimeout     = 30 * time.Second
	defaultPollInterval    = 2 * time.Second
	defaultInitialDelay    = 500 * time.Millisecond
	defaultMaxPollDuration = 15 * time.Minute
	defaultRetryInterval   = 2 * time.Second
	defaultRetryCycleCap   = 150
)

// Engine drives a client's view of one bulk scrape job at a time.
//
// Submitting a batch starts a status poller for the returned job id; each
// snapshot is merged into the local batch under the monotonic merge rule.
// Failed slots can be resubmitted with [Engine.Retry] and [Engine.RetryAll]
// on a timeline independent of the main poller; the merge rule is what
// makes that race safe.
//
// Each submission carries a generation token. Replacing or finishing a job
// invalidates the previous generation, and every callback that could still
// fire re-checks the token before mutating engine state, because a
// callback already queued at invalidation time cannot be un-queued.
//
// All methods are safe for concurrent use.
type Engine struct {
	client    *client.Client
	logger    *slog.Logger
	callbacks []func(Event)

	pollInterval    time.Duration
	initialDelay    time.Duration
	maxPollDuration time.Duration
	retryInterval   time.Duration
	retryCycleCap   int
	concurrency     int

	mu          sync.Mutex
	state       JobState
	jobID       string
	gen         uint64
	batch       *batch.Batch
	registry    *batch.Registry
	poller      *poller.Poller[*job.Snapshot]
	decodeNoted bool
}

// New creates an [Engine] with the given options.
//
// [WithBaseURL] is required; other options have defaults:
//   - HTTP timeout: 30 seconds
//   - Poll interval: 2 seconds, after an initial delay of 500 milliseconds
//   - Max poll duration: 15 minutes
//   - Retry interval: 2 seconds, capped at 150 cycles per retry job
func New(opts ...Option) (*Engine, error) {
	cfg := &engineConfig{
		httpTimeout:     defaultHTTPTimeout,
		pollInterval:    defaultPollInterval,
		initialDelay:    defaultInitialDelay,
		maxPollDuration: defaultMaxPollDuration,
		retryInterval:   defaultRetryInterval,
		retryCycleCap:   defaultRetryCycleCap,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.baseURL == "" {
		return nil, errors.New("a base URL is required")
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	c, err := client.New(client.Config{
		BaseURL: cfg.baseURL,
		Token:   cfg.token,
		Timeout: cfg.httpTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		client:          c,
		logger:          logger,
		callbacks:       cfg.eventCallbacks,
		pollInterval:    cfg.pollInterval,
		initialDelay:    cfg.initialDelay,
		maxPollDuration: cfg.maxPollDuration,
		retryInterval:   cfg.retryInterval,
		retryCycleCap:   cfg.retryCycleCap,
		concurrency:     cfg.concurrency,
		state:           StateIdle,
	}, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() JobState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// JobID returns the current job's identifier, or "" before any successful
// submission.
func (e *Engine) JobID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.jobID
}

// Slots returns a snapshot copy of the current batch, or nil before any
// submission.
func (e *Engine) Slots() []Slot {
	e.mu.Lock()
	b := e.batch
	e.mu.Unlock()
	if b == nil {
		return nil
	}
	internal := b.Slots()
	out := make([]Slot, len(internal))
	for i, s := range internal {
		out[i] = toPublicSlot(s)
	}
	return out
}

// Submit sends items to the service as one batch job and starts polling
// its status.
//
// Any previous job is discarded: its batch is replaced wholesale, its
// poller is disabled (releasing every pending timer), and callbacks still
// queued for it become no-ops. On submission failure the engine returns
// to [StateIdle] with every slot marked error.
//
// The context governs both the submission request and the lifetime of the
// status poller; cancelling it ends polling.
func (e *Engine) Submit(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return errors.New("at least one item is required")
	}

	jobItems := toJobItems(items)

	e.mu.Lock()
	e.gen++
	gen := e.gen
	if e.poller != nil {
		e.poller.Disable()
		e.poller = nil
	}
	e.batch = batch.New(jobItems)
	e.registry = batch.NewRegistry()
	e.jobID = ""
	e.state = StateSubmitted
	e.decodeNoted = false
	b := e.batch
	e.mu.Unlock()

	id, err := e.client.Submit(ctx, jobItems, e.concurrency)
	if err != nil {
		e.mu.Lock()
		if e.gen == gen {
			for i := 0; i < b.Len(); i++ {
				b.SetError(i, err.Error())
			}
			e.state = StateIdle
		}
		e.mu.Unlock()
		return fmt.Errorf("submit batch: %w", err)
	}

	e.mu.Lock()
	if e.gen != gen {
		// a newer submission superseded this one while it was in flight
		e.mu.Unlock()
		e.logger.Debug("submission superseded before polling started", "job_id", id)
		return nil
	}
	e.jobID = id
	e.state = StatePolling

	p, perr := poller.New(poller.Config[*job.Snapshot]{
		Fetch: func(ctx context.Context) (*job.Snapshot, error) {
			return e.client.Status(ctx, id)
		},
		Interval:     e.pollInterval,
		InitialDelay: e.initialDelay,
		MaxDuration:  e.maxPollDuration,
		OnSnapshot:   func(s *job.Snapshot) { e.handleSnapshot(gen, id, s) },
		OnError:      func(err error) { e.handlePollError(gen, id, err) },
		OnExpire:     func() { e.handlePollTimeout(gen, id) },
		Terminal:     func(s *job.Snapshot) bool { return s.Status.Terminal() },
		Logger:       e.logger,
	})
	if perr != nil {
		// interval and fetch are validated at construction; unreachable
		// outside of misuse, but fail loudly rather than hang Submitted
		e.state = StateIdle
		e.mu.Unlock()
		return perr
	}
	e.poller = p
	e.mu.Unlock()

	e.logger.Info("batch submitted", "job_id", id, "items", len(jobItems))
	p.Start(ctx)
	return nil
}

// handleSnapshot merges one fetched snapshot into the batch and advances
// the lifecycle on a terminal job status.
func (e *Engine) handleSnapshot(gen uint64, id string, snap *job.Snapshot) {
	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return
	}

	if len(snap.Results) < e.batch.Len() {
		// protocol violation; merging still cannot truncate local state
		e.logger.Warn("status results shrank, ignoring shrinkage",
			"job_id", id,
			"reported", len(snap.Results),
			"known", e.batch.Len(),
		)
	}

	resolved, changed := e.batch.Merge(snap.Results)

	var events []Event
	for _, idx := range resolved {
		slot, ok := e.batch.Slot(idx)
		if !ok {
			continue
		}
		events = append(events, Event{
			Type:  EventSlotResolved,
			JobID: id,
			Index: idx,
			Slot:  toPublicSlot(slot),
		})
	}

	switch snap.Status {
	case job.StatusFailed:
		msg := snap.Message
		if msg == "" {
			msg = "job failed"
		}
		for _, idx := range e.batch.FailPending(msg) {
			slot, _ := e.batch.Slot(idx)
			events = append(events, Event{
				Type:  EventSlotResolved,
				JobID: id,
				Index: idx,
				Slot:  toPublicSlot(slot),
			})
		}
		e.state = StateFailed
		e.poller = nil
		events = append(events, Event{Type: EventJobFailed, JobID: id, Message: msg})
	case job.StatusCompleted:
		e.state = StateCompleted
		e.poller = nil
		events = append(events, Event{Type: EventJobCompleted, JobID: id})
	}
	e.mu.Unlock()

	if changed || len(events) > 0 {
		e.emit(events)
	}
}

// handlePollError reports a failed status fetch. Transport and decode
// failures never halt the poller; a decode failure is surfaced once at
// WARN and demoted afterwards.
func (e *Engine) handlePollError(gen uint64, id string, err error) {
	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return
	}
	level := slog.LevelWarn
	if errors.Is(err, client.ErrDecode) {
		if e.decodeNoted {
			level = slog.LevelDebug
		}
		e.decodeNoted = true
	}
	e.mu.Unlock()

	e.logger.Log(context.Background(), level, "status poll failed",
		"job_id", id,
		"error", err.Error(),
	)
}

// handlePollTimeout fails the job locally when the main poller exceeds its
// wall-clock bound. The remote job may still be running.
func (e *Engine) handlePollTimeout(gen uint64, id string) {
	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return
	}
	msg := "polling timed out before the job finished"
	var events []Event
	for _, idx := range e.batch.FailPending(msg) {
		slot, _ := e.batch.Slot(idx)
		events = append(events, Event{
			Type:  EventSlotResolved,
			JobID: id,
			Index: idx,
			Slot:  toPublicSlot(slot),
		})
	}
	e.state = StateFailed
	e.poller = nil
	events = append(events, Event{Type: EventJobFailed, JobID: id, Message: msg})
	e.mu.Unlock()

	e.logger.Warn("job polling timed out", "job_id", id)
	e.emit(events)
}

// Retry resubmits the single slot at index as a fresh one-item job, polls
// it to completion under the retry cycle cap and splices the result back
// at the original position, preserving the slot's item metadata.
//
// Preconditions, checked locally before any network call: the slot is in
// [SlotError] ([ErrNotRetryable] otherwise) and no retry covering the
// index is in flight ([ErrRetryConflict]). The index is released from the
// retry registry unconditionally when the retry finishes, whatever the
// outcome.
//
// Retry blocks until the retry job resolves, the cycle cap is exhausted
// ([ErrRetryTimeout]) or ctx is cancelled.
func (e *Engine) Retry(ctx context.Context, index int) error {
	e.mu.Lock()
	gen := e.gen
	b := e.batch
	reg := e.registry
	id := e.jobID
	e.mu.Unlock()
	if b == nil {
		return ErrNoBatch
	}

	slot, ok := b.Slot(index)
	if !ok {
		return fmt.Errorf("slot index %d out of range", index)
	}
	if slot.Status != batch.SlotError {
		return fmt.Errorf("%w: slot %d is %s", ErrNotRetryable, index, slot.Status)
	}
	if !reg.Acquire(index) {
		return fmt.Errorf("%w: slot %d", ErrRetryConflict, index)
	}
	defer reg.Release(index)

	b.MarkPending(index)

	retryID, err := e.client.Submit(ctx, []job.Item{slot.Item}, 0)
	if err != nil {
		b.SetError(index, err.Error())
		return fmt.Errorf("retry slot %d: %w", index, err)
	}
	e.logger.Info("retry submitted", "job_id", id, "retry_job_id", retryID, "index", index)

	snap, expired, err := e.pollRetry(ctx, retryID)
	switch {
	case err != nil:
		b.SetError(index, "retry cancelled: "+err.Error())
		e.emitSlotResolved(gen, id, b, index)
		return fmt.Errorf("retry slot %d: %w", index, err)
	case expired:
		b.SetError(index, "retry timed out; remote job may still be running")
		e.emitSlotResolved(gen, id, b, index)
		return fmt.Errorf("retry slot %d: %w", index, ErrRetryTimeout)
	case snap.Status == job.StatusFailed:
		msg := snap.Message
		if msg == "" {
			msg = "retry job failed"
		}
		b.SetError(index, msg)
	default:
		var entry *job.Entry
		if len(snap.Results) > 0 {
			entry = snap.Results[0]
		}
		if entry == nil {
			b.SetError(index, "no result returned for retried item")
		} else {
			b.Resolve(index, entry)
		}
	}

	e.emitSlotResolved(gen, id, b, index)
	return nil
}

// RetryAll resubmits every currently-error slot together as one job and
// maps the job's result array back onto the original indices through an
// explicitly captured index map, never by positional coincidence with the
// full batch.
//
// RetryAll is mutually exclusive with active main polling, another bulk
// retry and any in-flight individual retry; conflicts are rejected
// locally as [ErrRetryConflict]. With no error slots it is a no-op.
func (e *Engine) RetryAll(ctx context.Context) error {
	e.mu.Lock()
	gen := e.gen
	b := e.batch
	reg := e.registry
	id := e.jobID
	state := e.state
	e.mu.Unlock()
	if b == nil {
		return ErrNoBatch
	}
	if state == StatePolling || state == StateSubmitted {
		return fmt.Errorf("%w: main job still in flight", ErrRetryConflict)
	}

	// indexMap: retry-response position i -> original batch position
	indexMap := b.ErrorIndices()
	if len(indexMap) == 0 {
		return nil
	}
	if !reg.AcquireBulk(indexMap) {
		return fmt.Errorf("%w: bulk retry overlaps an in-flight retry", ErrRetryConflict)
	}
	defer reg.ReleaseBulk(indexMap)

	items := make([]job.Item, len(indexMap))
	for i, idx := range indexMap {
		slot, _ := b.Slot(idx)
		items[i] = slot.Item
		b.MarkPending(idx)
	}

	retryID, err := e.client.Submit(ctx, items, e.concurrency)
	if err != nil {
		for _, idx := range indexMap {
			b.SetError(idx, err.Error())
		}
		return fmt.Errorf("retry all: %w", err)
	}
	e.logger.Info("bulk retry submitted", "job_id", id, "retry_job_id", retryID, "items", len(items))

	snap, expired, err := e.pollRetry(ctx, retryID)
	switch {
	case err != nil:
		for _, idx := range indexMap {
			b.SetError(idx, "retry cancelled: "+err.Error())
			e.emitSlotResolved(gen, id, b, idx)
		}
		return fmt.Errorf("retry all: %w", err)
	case expired:
		for _, idx := range indexMap {
			b.SetError(idx, "retry timed out; remote job may still be running")
			e.emitSlotResolved(gen, id, b, idx)
		}
		return fmt.Errorf("retry all: %w", ErrRetryTimeout)
	case snap.Status == job.StatusFailed:
		msg := snap.Message
		if msg == "" {
			msg = "retry job failed"
		}
		for _, idx := range indexMap {
			b.SetError(idx, msg)
			e.emitSlotResolved(gen, id, b, idx)
		}
		return nil
	}

	for i, idx := range indexMap {
		var entry *job.Entry
		if i < len(snap.Results) {
			entry = snap.Results[i]
		}
		if entry == nil {
			b.SetError(idx, "no result returned for retried item")
		} else {
			b.Resolve(idx, entry)
		}
		e.emitSlotResolved(gen, id, b, idx)
	}
	return nil
}

// pollRetry polls a retry job until it reports a terminal status or the
// cycle cap is exhausted. It returns the terminal snapshot, whether the
// cap expired first, or the context error if cancelled.
func (e *Engine) pollRetry(ctx context.Context, retryID string) (*job.Snapshot, bool, error) {
	var mu sync.Mutex
	var terminal *job.Snapshot
	expired := false

	p, err := poller.New(poller.Config[*job.Snapshot]{
		Fetch: func(ctx context.Context) (*job.Snapshot, error) {
			return e.client.Status(ctx, retryID)
		},
		Interval:     e.retryInterval,
		InitialDelay: e.initialDelay,
		MaxCycles:    e.retryCycleCap,
		OnSnapshot: func(s *job.Snapshot) {
			if s.Status.Terminal() {
				mu.Lock()
				terminal = s
				mu.Unlock()
			}
		},
		OnError: func(err error) {
			e.logger.Warn("retry status poll failed", "retry_job_id", retryID, "error", err.Error())
		},
		OnExpire: func() {
			mu.Lock()
			expired = true
			mu.Unlock()
		},
		Terminal: func(s *job.Snapshot) bool { return s.Status.Terminal() },
		Logger:   e.logger,
	})
	if err != nil {
		return nil, false, err
	}

	p.Start(ctx)
	select {
	case <-p.Done():
	case <-ctx.Done():
		p.Stop()
		return nil, false, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	if expired {
		return nil, true, nil
	}
	if terminal == nil {
		// the loop can only exit without a terminal snapshot or expiry
		// through cancellation
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		return nil, false, context.Canceled
	}
	return terminal, false, nil
}

// emitSlotResolved emits one SlotResolved event for the slot at idx unless
// the generation has moved on (the batch was replaced by a newer
// submission, so its events must not surface).
func (e *Engine) emitSlotResolved(gen uint64, id string, b *batch.Batch, idx int) {
	e.mu.Lock()
	live := e.gen == gen
	e.mu.Unlock()
	if !live {
		return
	}
	slot, ok := b.Slot(idx)
	if !ok {
		return
	}
	e.emit([]Event{{
		Type:  EventSlotResolved,
		JobID: id,
		Index: idx,
		Slot:  toPublicSlot(slot),
	}})
}

// emit delivers events to the registered callbacks in order, each behind
// panic recovery.
func (e *Engine) emit(events []Event) {
	for _, ev := range events {
		for _, cb := range e.callbacks {
			e.invokeCallbackSafe(cb, ev)
		}
	}
}

// invokeCallbackSafe calls an event callback with panic recovery.
// Panics are logged with a correlation id but do not propagate.
func (e *Engine) invokeCallbackSafe(cb func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"event_type", string(ev.Type),
			)
		}
	}()
	cb(ev)
}

// Stop disables the current job's poller, if any, and waits for it to
// exit. The batch and its slots remain readable. Stop is idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.gen++
	p := e.poller
	e.poller = nil
	e.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// Close stops the engine and releases the underlying HTTP client's idle
// connections.
func (e *Engine) Close() {
	e.Stop()
	e.client.Close()
}
