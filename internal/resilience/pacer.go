package resilience

import (
	"context"
	"time"

	"github.com/bmd-analytics/reportbuilder/internal/output"
)

// Pacer spaces out calls to the remote service.
type Pacer interface {
	// Wait blocks until the next call may go out or ctx is done.
	Wait(ctx context.Context) error
	// Observe reports the outcome of the call that followed Wait.
	Observe(err error)
}

// DefaultDelay sits inside the 300-500ms window the authoring SDK tolerates.
const DefaultDelay = 400 * time.Millisecond

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FixedDelay waits the same interval before every call. It ignores outcomes.
type FixedDelay struct {
	Delay time.Duration
}

// NewFixedDelay returns a pacer that waits d between calls.
func NewFixedDelay(d time.Duration) *FixedDelay {
	return &FixedDelay{Delay: d}
}

func (f *FixedDelay) Wait(ctx context.Context) error {
	return sleep(ctx, f.Delay)
}

func (f *FixedDelay) Observe(error) {}

// BucketConfig sizes a token bucket.
type BucketConfig struct {
	// Capacity is the burst size. Default: 10
	Capacity float64
	// RefillPerSecond is the sustained rate. Default: 2.5 (one call per 400ms)
	RefillPerSecond float64
	// Cost is the tokens one call consumes. Default: 1
	Cost float64
	// DefaultRetryAfter applies when a 429 carries no Retry-After. Default: 30s
	DefaultRetryAfter time.Duration
}

func (c BucketConfig) withDefaults() BucketConfig {
	if c.Capacity <= 0 {
		c.Capacity = 10
	}
	if c.RefillPerSecond <= 0 {
		c.RefillPerSecond = 2.5
	}
	if c.Cost <= 0 {
		c.Cost = 1
	}
	if c.DefaultRetryAfter <= 0 {
		c.DefaultRetryAfter = 30 * time.Second
	}
	return c
}

// TokenBucket lets bursts through up to Capacity, then settles at
// RefillPerSecond. A throttled response closes the bucket for the
// server's Retry-After interval.
type TokenBucket struct {
	config BucketConfig
	store  *Store
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
}

// NewTokenBucket creates a bucket persisted in store.
func NewTokenBucket(store *Store, config BucketConfig) *TokenBucket {
	return &TokenBucket{
		config: config.withDefaults(),
		store:  store,
		now:    time.Now,
		sleep:  sleep,
	}
}

// refill tops up the bucket for the time elapsed since the last refill.
func (tb *TokenBucket) refill(b *BucketState, now time.Time) {
	if b.LastRefillAt.IsZero() {
		b.Tokens = tb.config.Capacity
		b.LastRefillAt = now
		return
	}

	elapsed := now.Sub(b.LastRefillAt)
	b.LastRefillAt = now
	b.Tokens += elapsed.Seconds() * tb.config.RefillPerSecond
	if b.Tokens > tb.config.Capacity {
		b.Tokens = tb.config.Capacity
	}
}

// take consumes one call's worth of tokens. When it cannot, it returns how
// long to wait before trying again.
func (tb *TokenBucket) take() (time.Duration, error) {
	var wait time.Duration

	err := tb.store.Update(func(state *State) error {
		b := &state.Bucket
		now := tb.now()

		if d := b.BlockedFor(now); d > 0 {
			wait = d
			return nil
		}

		tb.refill(b, now)
		if b.Tokens >= tb.config.Cost {
			b.Tokens -= tb.config.Cost
			wait = 0
		} else {
			missing := tb.config.Cost - b.Tokens
			wait = time.Duration(missing / tb.config.RefillPerSecond * float64(time.Second))
		}
		state.UpdatedAt = now
		return nil
	})
	return wait, err
}

// Wait blocks until a token is available. If the state file cannot be
// updated the call is let through.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		wait, err := tb.take()
		if err != nil {
			return ctx.Err() //nolint:nilerr // unreadable state must not stall a build
		}
		if wait == 0 {
			return nil
		}
		if err := tb.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Observe closes the bucket after a 429 for the advertised Retry-After.
func (tb *TokenBucket) Observe(err error) {
	status, ok := output.IsRemote(err)
	if !ok || status != 429 {
		return
	}
	d := tb.config.DefaultRetryAfter
	if s := output.AsError(err).RetryAfter; s > 0 {
		d = time.Duration(s) * time.Second
	}
	_ = tb.BlockFor(d)
}

// BlockFor closes the bucket for d. An existing later block is kept.
func (tb *TokenBucket) BlockFor(d time.Duration) error {
	return tb.store.Update(func(state *State) error {
		until := tb.now().Add(d)
		if until.After(state.Bucket.BlockedUntil) {
			state.Bucket.BlockedUntil = until
			state.UpdatedAt = tb.now()
		}
		return nil
	})
}

// Tokens returns the tokens currently available, persisting any refill.
func (tb *TokenBucket) Tokens() (float64, error) {
	var tokens float64
	err := tb.store.Update(func(state *State) error {
		tb.refill(&state.Bucket, tb.now())
		tokens = state.Bucket.Tokens
		return nil
	})
	return tokens, err
}

// BlockedFor returns the remainder of any Retry-After block.
func (tb *TokenBucket) BlockedFor() (time.Duration, error) {
	state, err := tb.store.Load()
	if err != nil {
		return 0, err
	}
	return state.Bucket.BlockedFor(tb.now()), nil
}

// Capacity returns the burst size.
func (tb *TokenBucket) Capacity() float64 {
	return tb.config.Capacity
}

// Store returns the store the bucket persists to.
func (tb *TokenBucket) Store() *Store {
	return tb.store
}

// Reset discards the persisted bucket.
func (tb *TokenBucket) Reset() error {
	return tb.store.Clear()
}
