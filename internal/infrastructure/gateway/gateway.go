package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	syncdomain "github.com/engagesync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Gateway state and configuration
// ---------------------------------------------------------------------------

// State represents the gateway's pacing state
type State string

const (
	// StateClosed is normal pacing
	StateClosed State = "CLOSED"
	// StateBackoff is entered on a rate-limit signal or sustained failure;
	// calls are delayed until the backoff window elapses
	StateBackoff State = "BACKOFF"
)

// Config holds per-platform gateway settings
type Config struct {
	// Platform is the upstream this gateway fronts
	Platform syncdomain.PlatformCode
	// RequestsPerSecond caps the sustained outbound call rate
	RequestsPerSecond float64
	// MaxRetries bounds automatic retries of rate-limited calls
	MaxRetries int
	// RetryCooldown is the sleep between rate-limited retries
	RetryCooldown time.Duration
	// BackoffThreshold is the consecutive failure count that triggers backoff
	BackoffThreshold int
	// InitialBackoff is the first backoff window
	InitialBackoff time.Duration
	// MaxBackoff caps the exponential backoff window
	MaxBackoff time.Duration
	// MaxInFlight bounds concurrent calls; zero means unbounded
	MaxInFlight int
	// BatchSize is the fixed batch size used by CallBatch
	BatchSize int
	// BatchPause is the pause between CallBatch batches
	BatchPause time.Duration
}

// DefaultConfig returns conservative defaults for a platform
func DefaultConfig(platform syncdomain.PlatformCode) Config {
	return Config{
		Platform:          platform,
		RequestsPerSecond: 5,
		MaxRetries:        3,
		RetryCooldown:     2 * time.Second,
		BackoffThreshold:  3,
		InitialBackoff:    time.Second,
		MaxBackoff:        time.Minute,
		MaxInFlight:       0,
		BatchSize:         10,
		BatchPause:        time.Second,
	}
}

// minInterval is the minimum spacing between two calls
func (c *Config) minInterval() time.Duration {
	if c.RequestsPerSecond <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.RequestsPerSecond)
}

// Stats is an observability snapshot of one gateway
type Stats struct {
	Platform          syncdomain.PlatformCode `json:"platform"`
	State             State                   `json:"state"`
	QueueDepth        int64                   `json:"queue_depth"`
	Calls             uint64                  `json:"calls"`
	Retries           uint64                  `json:"retries"`
	ConsecutiveErrors int                     `json:"consecutive_errors"`
	BackoffUntil      *time.Time              `json:"backoff_until,omitempty"`
}

// ---------------------------------------------------------------------------
// Gateway
// ---------------------------------------------------------------------------

// Gateway is the sole call path to one upstream platform. It keeps the
// outbound call rate within the platform's limit, smooths bursts, retries
// rate-limited calls with backoff, and optionally bounds in-flight calls.
//
// Pacing reserves a time slot under the mutex and sleeps outside it, so calls
// issue in FIFO reservation order without holding the lock across I/O.
type Gateway struct {
	cfg    Config
	logger *zap.Logger

	mu                sync.Mutex
	nextSlot          time.Time
	consecutiveErrors int
	backoffUntil      time.Time
	backoffDelay      time.Duration

	calls   atomic.Uint64
	retries atomic.Uint64
	queued  atomic.Int64

	sem chan struct{}
}

// New creates a gateway for one platform
func New(cfg Config, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		cfg:          cfg,
		logger:       logger.With(zap.String("platform", cfg.Platform.String())),
		backoffDelay: cfg.InitialBackoff,
	}
	if cfg.MaxInFlight > 0 {
		g.sem = make(chan struct{}, cfg.MaxInFlight)
	}
	return g
}

// Platform returns the platform this gateway fronts
func (g *Gateway) Platform() syncdomain.PlatformCode {
	return g.cfg.Platform
}

// Call invokes fn after the minimum inter-request interval since the
// gateway's last call has elapsed. Rate-limited failures are retried up to
// MaxRetries with a cooldown; on exhaustion the last error is surfaced.
// Non-retryable errors propagate immediately.
func (g *Gateway) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	g.queued.Add(1)
	defer g.queued.Add(-1)

	if g.sem != nil {
		select {
		case g.sem <- struct{}{}:
			defer func() { <-g.sem }()
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if err := g.waitTurn(ctx); err != nil {
			return err
		}

		g.calls.Add(1)
		err := fn(ctx)
		if err == nil {
			g.recordSuccess()
			return nil
		}

		if !isRateLimited(err) {
			g.recordFailure(false)
			return err
		}

		g.recordFailure(true)
		lastErr = err

		if attempt < g.cfg.MaxRetries {
			g.retries.Add(1)
			g.logger.Warn("rate limited by upstream, retrying",
				zap.Int("attempt", attempt+1),
				zap.Duration("cooldown", g.cfg.RetryCooldown),
			)
			if err := sleepCtx(ctx, g.cfg.RetryCooldown); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("gateway %s: retries exhausted: %w", g.cfg.Platform, lastErr)
}

// Invoke is a generic convenience wrapper around Call for functions that
// return a value alongside the error
func Invoke[T any](ctx context.Context, g *Gateway, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = fn(ctx)
		return callErr
	})
	return out, err
}

// CallBatch executes op for each of n items through the gateway in fixed-size
// batches. Items within a batch run concurrently and are awaited as a group;
// per-item errors are captured in the returned slice and a failing item never
// short-circuits its batch. Batches execute sequentially with an inter-batch
// pause to bound load.
func (g *Gateway) CallBatch(ctx context.Context, n int, op func(ctx context.Context, i int) error) []error {
	results := make([]error, n)
	batchSize := g.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = g.Call(ctx, func(ctx context.Context) error {
					return op(ctx, i)
				})
			}(i)
		}
		wg.Wait()

		if end < n && g.cfg.BatchPause > 0 {
			if err := sleepCtx(ctx, g.cfg.BatchPause); err != nil {
				for i := end; i < n; i++ {
					results[i] = err
				}
				return results
			}
		}
	}
	return results
}

// Stats returns an observability snapshot
func (g *Gateway) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Stats{
		Platform:          g.cfg.Platform,
		State:             StateClosed,
		QueueDepth:        g.queued.Load(),
		Calls:             g.calls.Load(),
		Retries:           g.retries.Load(),
		ConsecutiveErrors: g.consecutiveErrors,
	}
	if time.Now().Before(g.backoffUntil) {
		s.State = StateBackoff
		until := g.backoffUntil
		s.BackoffUntil = &until
	}
	return s
}

// waitTurn reserves the next pacing slot and sleeps until it arrives.
// Slots start no earlier than the backoff window's end.
func (g *Gateway) waitTurn(ctx context.Context) error {
	g.mu.Lock()
	now := time.Now()
	slot := now
	if g.nextSlot.After(slot) {
		slot = g.nextSlot
	}
	if g.backoffUntil.After(slot) {
		slot = g.backoffUntil
	}
	g.nextSlot = slot.Add(g.cfg.minInterval())
	g.mu.Unlock()

	return sleepCtx(ctx, time.Until(slot))
}

// recordSuccess closes any backoff window and resets the failure streak
func (g *Gateway) recordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutiveErrors = 0
	g.backoffDelay = g.cfg.InitialBackoff
	g.backoffUntil = time.Time{}
}

// recordFailure tracks the failure streak and opens or extends the backoff
// window on a rate-limit signal or when the streak crosses the threshold
func (g *Gateway) recordFailure(rateLimited bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.consecutiveErrors++
	if !rateLimited && (g.cfg.BackoffThreshold <= 0 || g.consecutiveErrors < g.cfg.BackoffThreshold) {
		return
	}

	delay := g.backoffDelay
	if delay <= 0 {
		delay = time.Second
	}
	g.backoffUntil = time.Now().Add(delay)

	next := delay * 2
	if g.cfg.MaxBackoff > 0 && next > g.cfg.MaxBackoff {
		next = g.cfg.MaxBackoff
	}
	g.backoffDelay = next
}

// isRateLimited reports whether the error carries the platform rate-limit signal
func isRateLimited(err error) bool {
	return errors.Is(err, syncdomain.ErrPlatformRateLimited)
}

// sleepCtx sleeps for d or until the context is cancelled
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
