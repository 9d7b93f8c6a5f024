package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeService is a scripted stand-in for the remote scraping service.
//
// Submissions are assigned sequential ids (job-1, job-2, ...). Status
// requests pop queued response bodies per job id; the last queued body
// repeats so a job can be observed "running" indefinitely.
type fakeService struct {
	t *testing.T

	lock      sync.Mutex
	submitted [][]Item
	bodies    map[string][]string
	nextID    int
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	f := &fakeService{t: t, bodies: make(map[string][]string)}
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/batch-search", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Items []Item `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.t.Errorf("decode submit request: %v", err)
		}
		f.lock.Lock()
		f.nextID++
		id := fmt.Sprintf("job-%d", f.nextID)
		f.submitted = append(f.submitted, req.Items)
		f.lock.Unlock()
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"job_id": %q}`, id)
	})
	mux.HandleFunc("GET /api/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		f.lock.Lock()
		queue := f.bodies[id]
		if len(queue) == 0 {
			f.lock.Unlock()
			http.NotFound(w, r)
			return
		}
		body := queue[0]
		if len(queue) > 1 {
			f.bodies[id] = queue[1:]
		}
		f.lock.Unlock()
		_, _ = w.Write([]byte(body))
	})
	return mux
}

// script queues status response bodies for a job id. The last body repeats.
func (f *fakeService) script(id string, bodies ...string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.bodies[id] = append(f.bodies[id], bodies...)
}

// submissions returns a copy of the item lists submitted so far, in order.
func (f *fakeService) submissions() [][]Item {
	f.lock.Lock()
	defer f.lock.Unlock()
	cp := make([][]Item, len(f.submitted))
	copy(cp, f.submitted)
	return cp
}

// eventRecorder collects engine events and signals terminal ones.
type eventRecorder struct {
	lock     sync.Mutex
	events   []Event
	terminal chan Event
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{terminal: make(chan Event, 8)}
}

func (r *eventRecorder) callback() func(Event) {
	return func(ev Event) {
		r.lock.Lock()
		r.events = append(r.events, ev)
		r.lock.Unlock()
		if ev.Type == EventJobCompleted || ev.Type == EventJobFailed {
			r.terminal <- ev
		}
	}
}

func (r *eventRecorder) all() []Event {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *eventRecorder) waitTerminal(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-r.terminal:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for terminal job event")
		return Event{}
	}
}

func newTestEngine(t *testing.T, baseURL string, rec *eventRecorder, extra ...Option) *Engine {
	t.Helper()
	opts := []Option{
		WithBaseURL(baseURL),
		WithPollInterval(10 * time.Millisecond),
		WithInitialDelay(time.Millisecond),
		WithRetryInterval(5 * time.Millisecond),
		WithLogger(testLogger()),
	}
	if rec != nil {
		opts = append(opts, WithEventCallback(rec.callback()))
	}
	opts = append(opts, extra...)
	eng, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(eng.Close)
	return eng
}

func threeItems() []Item {
	return []Item{
		{Name: "wooden train", Brand: "hape"},
		{Name: "play kitchen", Brand: "hape"},
		{Name: "stacking cubes", Brand: "liewood"},
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(); err == nil {
		t.Error("New() error = nil, want error for missing base URL")
	}
}

// TestEngine_ScenarioA walks the canonical three-poll progression: all
// pending, partial resolution, then completion resolving the last slot.
func TestEngine_ScenarioA(t *testing.T) {
	svc, server := newFakeService(t)
	svc.script("job-1",
		`{"status": "running", "progress": 0, "total": 3, "results": [null, null, null]}`,
		`{"status": "running", "progress": 66, "total": 3, "results": [
			{"status": "success", "product": {"title": "Wooden Train"}},
			null,
			{"status": "error", "message": "not found"}
		]}`,
		`{"status": "completed", "progress": 100, "total": 3, "results": [
			{"status": "success", "product": {"title": "Wooden Train"}},
			{"status": "success", "product": {"title": "Play Kitchen"}},
			{"status": "error", "message": "not found"}
		]}`,
	)

	rec := newEventRecorder()
	eng := newTestEngine(t, server.URL, rec)

	if err := eng.Submit(context.Background(), threeItems()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got := eng.JobID(); got != "job-1" {
		t.Errorf("JobID() = %q, want job-1", got)
	}

	ev := rec.waitTerminal(t)
	if ev.Type != EventJobCompleted {
		t.Fatalf("terminal event = %+v, want JobCompleted", ev)
	}
	if eng.State() != StateCompleted {
		t.Errorf("State() = %q, want completed", eng.State())
	}

	slots := eng.Slots()
	if len(slots) != 3 {
		t.Fatalf("len(Slots()) = %d, want 3", len(slots))
	}
	if slots[0].Status != SlotSuccess || slots[0].Product == nil || slots[0].Product.Title != "Wooden Train" {
		t.Errorf("slot 0 = %+v, want success Wooden Train", slots[0])
	}
	if slots[1].Status != SlotSuccess || slots[1].Product == nil || slots[1].Product.Title != "Play Kitchen" {
		t.Errorf("slot 1 = %+v, want success Play Kitchen", slots[1])
	}
	if slots[2].Status != SlotError || slots[2].Message != "not found" {
		t.Errorf("slot 2 = %+v, want error not found", slots[2])
	}

	// item metadata survives every merge
	for i, slot := range slots {
		if slot.Item != threeItems()[i] {
			t.Errorf("slot %d item = %+v, want %+v", i, slot.Item, threeItems()[i])
		}
	}

	// slots 0 and 2 resolved before slot 1
	var order []int
	for _, ev := range rec.all() {
		if ev.Type == EventSlotResolved {
			order = append(order, ev.Index)
		}
	}
	if len(order) != 3 || order[0] != 0 || order[1] != 2 || order[2] != 1 {
		t.Errorf("slot resolution order = %v, want [0 2 1]", order)
	}
}

// TestEngine_ScenarioB retries an error slot after the main job completed:
// the slot flips error to success, the others stay untouched.
func TestEngine_ScenarioB(t *testing.T) {
	svc, server := newFakeService(t)
	svc.script("job-1",
		`{"status": "completed", "progress": 100, "total": 3, "results": [
			{"status": "success", "product": {"title": "Wooden Train"}},
			{"status": "success", "product": {"title": "Play Kitchen"}},
			{"status": "error", "message": "not found"}
		]}`,
	)
	svc.script("job-2",
		`{"status": "running", "progress": 0, "total": 1, "results": [null]}`,
		`{"status": "completed", "progress": 100, "total": 1, "results": [
			{"status": "success", "product": {"title": "Stacking Cubes"}}
		]}`,
	)

	rec := newEventRecorder()
	eng := newTestEngine(t, server.URL, rec)

	if err := eng.Submit(context.Background(), threeItems()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	rec.waitTerminal(t)

	if err := eng.Retry(context.Background(), 2); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}

	// the retry job got exactly the one original item
	subs := svc.submissions()
	if len(subs) != 2 {
		t.Fatalf("submissions = %d, want 2", len(subs))
	}
	if len(subs[1]) != 1 || subs[1][0] != threeItems()[2] {
		t.Errorf("retry submission = %+v, want the slot 2 item", subs[1])
	}

	slots := eng.Slots()
	if slots[2].Status != SlotSuccess || slots[2].Product.Title != "Stacking Cubes" {
		t.Errorf("slot 2 = %+v, want success after retry", slots[2])
	}
	if slots[0].Status != SlotSuccess || slots[1].Status != SlotSuccess {
		t.Errorf("slots 0/1 = %+v / %+v, want unchanged", slots[0], slots[1])
	}
	if slots[2].Item != threeItems()[2] {
		t.Errorf("slot 2 item = %+v, want metadata preserved", slots[2].Item)
	}

	// registry is empty again: the slot is no longer retryable only
	// because it succeeded, not because it is stuck in flight
	if err := eng.Retry(context.Background(), 2); !errors.Is(err, ErrNotRetryable) {
		t.Errorf("second Retry() error = %v, want ErrNotRetryable", err)
	}
}

// TestEngine_RetryAllIndexMap verifies explicit index-map splicing: batch
// [A(error), B(success), C(error), D(error)], response [ok, fail, ok]
// yields A success, C error, D success, with B untouched.
func TestEngine_RetryAllIndexMap(t *testing.T) {
	items := []Item{
		{Name: "a", Brand: "hape"},
		{Name: "b", Brand: "hape"},
		{Name: "c", Brand: "hape"},
		{Name: "d", Brand: "hape"},
	}

	svc, server := newFakeService(t)
	svc.script("job-1",
		`{"status": "completed", "progress": 100, "total": 4, "results": [
			{"status": "error", "message": "fail a"},
			{"status": "success", "product": {"title": "B"}},
			{"status": "error", "message": "fail c"},
			{"status": "error", "message": "fail d"}
		]}`,
	)
	svc.script("job-2",
		`{"status": "completed", "progress": 100, "total": 3, "results": [
			{"status": "success", "product": {"title": "A"}},
			{"status": "error", "message": "still failing"},
			{"status": "success", "product": {"title": "D"}}
		]}`,
	)

	rec := newEventRecorder()
	eng := newTestEngine(t, server.URL, rec)

	if err := eng.Submit(context.Background(), items); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	rec.waitTerminal(t)

	if err := eng.RetryAll(context.Background()); err != nil {
		t.Fatalf("RetryAll() error = %v", err)
	}

	subs := svc.submissions()
	if len(subs) != 2 {
		t.Fatalf("submissions = %d, want 2", len(subs))
	}
	wantRetried := []Item{items[0], items[2], items[3]}
	if len(subs[1]) != 3 || subs[1][0] != wantRetried[0] || subs[1][1] != wantRetried[1] || subs[1][2] != wantRetried[2] {
		t.Errorf("retry submission = %+v, want %+v", subs[1], wantRetried)
	}

	slots := eng.Slots()
	if slots[0].Status != SlotSuccess || slots[0].Product.Title != "A" {
		t.Errorf("slot 0 = %+v, want success A", slots[0])
	}
	if slots[1].Status != SlotSuccess || slots[1].Product.Title != "B" {
		t.Errorf("slot 1 = %+v, want B untouched", slots[1])
	}
	if slots[2].Status != SlotError || slots[2].Message != "still failing" {
		t.Errorf("slot 2 = %+v, want error still failing", slots[2])
	}
	if slots[3].Status != SlotSuccess || slots[3].Product.Title != "D" {
		t.Errorf("slot 3 = %+v, want success D", slots[3])
	}
}

// TestEngine_SubmitFailureReturnsToIdle verifies the Submitted state is
// transient: a failed submission goes back to Idle with all slots error.
func TestEngine_SubmitFailureReturnsToIdle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	eng := newTestEngine(t, server.URL, nil)

	if err := eng.Submit(context.Background(), threeItems()); err == nil {
		t.Fatal("Submit() error = nil, want error")
	}
	if eng.State() != StateIdle {
		t.Errorf("State() = %q, want idle", eng.State())
	}
	for i, slot := range eng.Slots() {
		if slot.Status != SlotError || slot.Message == "" {
			t.Errorf("slot %d = %+v, want error with message", i, slot)
		}
	}
}

// TestEngine_JobLevelFailureFansOut verifies a failed job status marks
// every still-pending slot error with the job-level message.
func TestEngine_JobLevelFailureFansOut(t *testing.T) {
	svc, server := newFakeService(t)
	svc.script("job-1",
		`{"status": "running", "progress": 33, "total": 3, "results": [
			{"status": "success", "product": {"title": "Wooden Train"}},
			null,
			null
		]}`,
		`{"status": "failed", "progress": 33, "total": 3, "error": "scraper pool crashed", "results": [
			{"status": "success", "product": {"title": "Wooden Train"}},
			null,
			null
		]}`,
	)

	rec := newEventRecorder()
	eng := newTestEngine(t, server.URL, rec)

	if err := eng.Submit(context.Background(), threeItems()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ev := rec.waitTerminal(t)
	if ev.Type != EventJobFailed || ev.Message != "scraper pool crashed" {
		t.Fatalf("terminal event = %+v, want JobFailed with job message", ev)
	}
	if eng.State() != StateFailed {
		t.Errorf("State() = %q, want failed", eng.State())
	}

	slots := eng.Slots()
	if slots[0].Status != SlotSuccess {
		t.Errorf("slot 0 = %+v, want resolved slot untouched by fan-out", slots[0])
	}
	for _, i := range []int{1, 2} {
		if slots[i].Status != SlotError || slots[i].Message != "scraper pool crashed" {
			t.Errorf("slot %d = %+v, want job-level error", i, slots[i])
		}
	}
}

// TestEngine_MaxPollDurationTimesOut verifies exceeding the wall-clock
// bound fails the job locally as a timeout.
func TestEngine_MaxPollDurationTimesOut(t *testing.T) {
	svc, server := newFakeService(t)
	svc.script("job-1",
		`{"status": "running", "progress": 0, "total": 3, "results": [null, null, null]}`,
	)

	rec := newEventRecorder()
	eng := newTestEngine(t, server.URL, rec, WithMaxPollDuration(60*time.Millisecond))

	if err := eng.Submit(context.Background(), threeItems()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ev := rec.waitTerminal(t)
	if ev.Type != EventJobFailed {
		t.Fatalf("terminal event = %+v, want JobFailed", ev)
	}
	if eng.State() != StateFailed {
		t.Errorf("State() = %q, want failed", eng.State())
	}
	for i, slot := range eng.Slots() {
		if slot.Status != SlotError {
			t.Errorf("slot %d = %+v, want timeout error", i, slot)
		}
	}
}

// TestEngine_RetryAllWhileMainPollingConflicts verifies the bulk retry is
// rejected locally while the main job is still being polled.
func TestEngine_RetryAllWhileMainPollingConflicts(t *testing.T) {
	svc, server := newFakeService(t)
	svc.script("job-1",
		`{"status": "running", "progress": 0, "total": 3, "results": [null, null, null]}`,
	)

	eng := newTestEngine(t, server.URL, nil)
	if err := eng.Submit(context.Background(), threeItems()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if err := eng.RetryAll(context.Background()); !errors.Is(err, ErrRetryConflict) {
		t.Errorf("RetryAll() error = %v, want ErrRetryConflict", err)
	}
}

// TestEngine_RetryConflictOnSameIndex verifies at most one retry is ever
// in flight per index.
func TestEngine_RetryConflictOnSameIndex(t *testing.T) {
	svc, server := newFakeService(t)
	svc.script("job-1",
		`{"status": "completed", "progress": 100, "total": 3, "results": [
			{"status": "success", "product": {"title": "Wooden Train"}},
			{"status": "success", "product": {"title": "Play Kitchen"}},
			{"status": "error", "message": "not found"}
		]}`,
	)
	// the retry job stays running until the conflicting attempt was made
	svc.script("job-2",
		`{"status": "running", "progress": 0, "total": 1, "results": [null]}`,
	)

	rec := newEventRecorder()
	eng := newTestEngine(t, server.URL, rec)

	if err := eng.Submit(context.Background(), threeItems()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	rec.waitTerminal(t)

	firstDone := make(chan error, 1)
	go func() { firstDone <- eng.Retry(context.Background(), 2) }()

	// wait until the first retry's submission reached the service
	deadline := time.Now().Add(2 * time.Second)
	for len(svc.submissions()) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for first retry submission")
		}
		time.Sleep(time.Millisecond)
	}

	if err := eng.Retry(context.Background(), 2); !errors.Is(err, ErrRetryConflict) {
		t.Errorf("concurrent Retry() error = %v, want ErrRetryConflict", err)
	}

	// let the first retry finish
	svc.script("job-2",
		`{"status": "completed", "progress": 100, "total": 1, "results": [
			{"status": "success", "product": {"title": "Stacking Cubes"}}
		]}`,
	)
	if err := <-firstDone; err != nil {
		t.Errorf("first Retry() error = %v", err)
	}
}

// TestEngine_RetryOnNonErrorSlot verifies retry preconditions reject
// pending and success slots.
func TestEngine_RetryOnNonErrorSlot(t *testing.T) {
	svc, server := newFakeService(t)
	svc.script("job-1",
		`{"status": "completed", "progress": 100, "total": 3, "results": [
			{"status": "success", "product": {"title": "Wooden Train"}},
			{"status": "success", "product": {"title": "Play Kitchen"}},
			{"status": "error", "message": "not found"}
		]}`,
	)

	rec := newEventRecorder()
	eng := newTestEngine(t, server.URL, rec)

	if err := eng.Retry(context.Background(), 0); !errors.Is(err, ErrNoBatch) {
		t.Errorf("Retry() before submit error = %v, want ErrNoBatch", err)
	}

	if err := eng.Submit(context.Background(), threeItems()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	rec.waitTerminal(t)

	if err := eng.Retry(context.Background(), 0); !errors.Is(err, ErrNotRetryable) {
		t.Errorf("Retry(success slot) error = %v, want ErrNotRetryable", err)
	}
	if err := eng.Retry(context.Background(), 99); err == nil {
		t.Error("Retry(out of range) error = nil, want error")
	}
}

// TestEngine_RetryTimeoutMarksSlotLocally verifies cycle-cap exhaustion
// yields a local error state without assuming the remote job stopped.
func TestEngine_RetryTimeoutMarksSlotLocally(t *testing.T) {
	svc, server := newFakeService(t)
	svc.script("job-1",
		`{"status": "completed", "progress": 100, "total": 3, "results": [
			{"status": "success", "product": {"title": "Wooden Train"}},
			{"status": "success", "product": {"title": "Play Kitchen"}},
			{"status": "error", "message": "not found"}
		]}`,
	)
	svc.script("job-2",
		`{"status": "running", "progress": 0, "total": 1, "results": [null]}`,
	)

	rec := newEventRecorder()
	eng := newTestEngine(t, server.URL, rec, WithRetryCycleCap(3))

	if err := eng.Submit(context.Background(), threeItems()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	rec.waitTerminal(t)

	if err := eng.Retry(context.Background(), 2); !errors.Is(err, ErrRetryTimeout) {
		t.Fatalf("Retry() error = %v, want ErrRetryTimeout", err)
	}

	slots := eng.Slots()
	if slots[2].Status != SlotError {
		t.Errorf("slot 2 = %+v, want local timeout error", slots[2])
	}

	// the index was released despite the timeout
	if err := eng.Retry(context.Background(), 2); errors.Is(err, ErrRetryConflict) {
		t.Error("Retry() after timeout still conflicts, want index released")
	}
}

// TestEngine_DecodeErrorDoesNotStopPolling verifies a malformed snapshot
// is surfaced but the cycle continues to the next poll.
func TestEngine_DecodeErrorDoesNotStopPolling(t *testing.T) {
	svc, server := newFakeService(t)
	svc.script("job-1",
		`{{{not json`,
		`{"status": "completed", "progress": 100, "total": 1, "results": [
			{"status": "success", "product": {"title": "Wooden Train"}}
		]}`,
	)

	rec := newEventRecorder()
	eng := newTestEngine(t, server.URL, rec)

	if err := eng.Submit(context.Background(), threeItems()[:1]); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ev := rec.waitTerminal(t)
	if ev.Type != EventJobCompleted {
		t.Errorf("terminal event = %+v, want JobCompleted despite decode error", ev)
	}
}

// TestEngine_ResubmitDiscardsPriorJob verifies a new submission replaces
// the batch wholesale and stale pollers cannot mutate the new state.
func TestEngine_ResubmitDiscardsPriorJob(t *testing.T) {
	svc, server := newFakeService(t)
	svc.script("job-1",
		`{"status": "running", "progress": 0, "total": 3, "results": [null, null, null]}`,
	)
	svc.script("job-2",
		`{"status": "completed", "progress": 100, "total": 1, "results": [
			{"status": "success", "product": {"title": "Replacement"}}
		]}`,
	)

	rec := newEventRecorder()
	eng := newTestEngine(t, server.URL, rec)

	if err := eng.Submit(context.Background(), threeItems()); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if err := eng.Submit(context.Background(), threeItems()[:1]); err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}

	ev := rec.waitTerminal(t)
	if ev.Type != EventJobCompleted || ev.JobID != "job-2" {
		t.Fatalf("terminal event = %+v, want completion of job-2", ev)
	}

	slots := eng.Slots()
	if len(slots) != 1 {
		t.Fatalf("len(Slots()) = %d, want 1 (prior batch discarded)", len(slots))
	}
	if slots[0].Product == nil || slots[0].Product.Title != "Replacement" {
		t.Errorf("slot 0 = %+v, want result from the new job", slots[0])
	}
	if got := eng.JobID(); got != "job-2" {
		t.Errorf("JobID() = %q, want job-2", got)
	}
}

// TestEngine_CallbackPanicRecovered verifies a panicking event callback
// does not crash the engine and later callbacks still run.
func TestEngine_CallbackPanicRecovered(t *testing.T) {
	svc, server := newFakeService(t)
	svc.script("job-1",
		`{"status": "completed", "progress": 100, "total": 1, "results": [
			{"status": "success", "product": {"title": "Wooden Train"}}
		]}`,
	)

	rec := newEventRecorder()
	eng := newTestEngine(t, server.URL, nil,
		WithEventCallback(func(Event) { panic("callback boom") }),
		WithEventCallback(rec.callback()),
	)

	if err := eng.Submit(context.Background(), threeItems()[:1]); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ev := rec.waitTerminal(t)
	if ev.Type != EventJobCompleted {
		t.Errorf("terminal event = %+v, want JobCompleted delivered past the panic", ev)
	}
}

// TestEngine_RetryAllNoErrorSlots verifies the bulk retry is a no-op when
// nothing is in error.
func TestEngine_RetryAllNoErrorSlots(t *testing.T) {
	svc, server := newFakeService(t)
	svc.script("job-1",
		`{"status": "completed", "progress": 100, "total": 1, "results": [
			{"status": "success", "product": {"title": "Wooden Train"}}
		]}`,
	)

	rec := newEventRecorder()
	eng := newTestEngine(t, server.URL, rec)

	if err := eng.Submit(context.Background(), threeItems()[:1]); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	rec.waitTerminal(t)

	if err := eng.RetryAll(context.Background()); err != nil {
		t.Errorf("RetryAll() error = %v, want nil no-op", err)
	}
	if got := len(svc.submissions()); got != 1 {
		t.Errorf("submissions = %d, want 1 (no retry job submitted)", got)
	}
}
