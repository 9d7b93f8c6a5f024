package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Config describes one polling loop over snapshots of type T.
type Config[T any] struct {
	// Fetch retrieves the latest snapshot. Required.
	Fetch func(ctx context.Context) (T, error)

	// Interval is the steady-state time between cycles. Required.
	Interval time.Duration

	// InitialDelay is the wait before the first cycle. It is deliberately
	// distinct from Interval so a freshly submitted job is not hammered
	// immediately. Zero means the first cycle runs at once.
	InitialDelay time.Duration

	// MaxDuration bounds the total wall-clock time of the loop.
	// Zero means unbounded. Exceeding it invokes OnExpire and stops.
	MaxDuration time.Duration

	// MaxCycles bounds the number of fetch cycles. Zero means unbounded.
	// Exhausting it invokes OnExpire and stops. Unlike MaxDuration this
	// bounds worst-case resource use regardless of interval settings.
	MaxCycles int

	// OnSnapshot is invoked with each successfully fetched snapshot.
	OnSnapshot func(T)

	// OnError is invoked when a fetch fails. A failed fetch does not stop
	// the loop; only the explicit stop conditions do.
	OnError func(error)

	// OnExpire is invoked once when MaxDuration or MaxCycles is exceeded
	// before the stop predicate was satisfied.
	OnExpire func()

	// Terminal is the stop predicate, evaluated over each successful
	// snapshot. Returning true ends the loop. Required.
	Terminal func(T) bool

	// Logger receives loop lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Poller repeatedly invokes a fetch operation while enabled.
//
// At most one fetch is in flight at any time: cycles are strictly
// sequential, and a tick that elapses while a fetch is outstanding is
// discarded rather than queued.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Poller[T any] struct {
	cfg    Config[T]
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a [Poller] from cfg.
//
// Returns an error if Fetch or Terminal is nil or Interval is not positive.
func New[T any](cfg Config[T]) (*Poller[T], error) {
	if cfg.Fetch == nil {
		return nil, errors.New("poller: fetch operation is required")
	}
	if cfg.Terminal == nil {
		return nil, errors.New("poller: terminal predicate is required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be positive")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller[T]{
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

// Start begins the polling loop in a background goroutine.
//
// Start is non-blocking and idempotent; calls after the first, or after
// Stop, are no-ops. If ctx is nil, context.Background() is used.
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	if ctx == nil {
		ctx = context.Background()
	}
	var runCtx context.Context
	runCtx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	p.mu.Unlock()

	go p.run(runCtx)
}

// Disable cancels the loop without waiting for it to exit.
//
// Cancellation is synchronous: no new cycle will start and every pending
// timer is released as the loop unwinds. A fetch already outstanding at
// disablement is allowed to return, but its outcome is discarded. Use Stop
// to additionally wait for the loop goroutine.
func (p *Poller[T]) Disable() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		if p.cancel != nil {
			p.cancel()
		}
	}
	p.mu.Unlock()
}

// Stop disables the poller and waits for the loop goroutine to exit.
//
// After Stop returns, every timer owned by the loop has been released and
// no further callback will be invoked. Stop is idempotent and is a safe
// no-op before Start.
func (p *Poller[T]) Stop() {
	p.Disable()
	p.wg.Wait()
	p.closeOnce.Do(func() { close(p.done) })
}

// Done returns a channel that is closed when the polling loop has exited,
// whatever the stop condition was.
func (p *Poller[T]) Done() <-chan struct{} {
	return p.done
}

func (p *Poller[T]) run(ctx context.Context) {
	defer p.wg.Done()
	defer p.closeOnce.Do(func() { close(p.done) })

	var expire <-chan time.Time
	if p.cfg.MaxDuration > 0 {
		expireTimer := time.NewTimer(p.cfg.MaxDuration)
		defer expireTimer.Stop()
		expire = expireTimer.C
	}

	if p.cfg.InitialDelay > 0 {
		initial := time.NewTimer(p.cfg.InitialDelay)
		select {
		case <-ctx.Done():
			initial.Stop()
			return
		case <-expire:
			initial.Stop()
			p.expire()
			return
		case <-initial.C:
		}
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	cycles := 0
	for {
		snapshot, err := p.cfg.Fetch(ctx)
		cycles++

		// a fetch already outstanding at disablement must not deliver
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			if p.cfg.OnError != nil {
				p.cfg.OnError(err)
			}
		} else {
			if p.cfg.OnSnapshot != nil {
				p.cfg.OnSnapshot(snapshot)
			}
			if p.cfg.Terminal(snapshot) {
				return
			}
		}

		if p.cfg.MaxCycles > 0 && cycles >= p.cfg.MaxCycles {
			p.logger.Debug("poller cycle bound reached", "cycles", cycles)
			p.expire()
			return
		}

		// a tick that elapsed during the fetch is skipped, not queued
		select {
		case <-ticker.C:
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-expire:
			p.expire()
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller[T]) expire() {
	if p.cfg.OnExpire != nil {
		p.cfg.OnExpire()
	}
}
