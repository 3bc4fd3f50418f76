package resilience

import (
	"time"
)

// StateVersion is the current state schema version.
const StateVersion = 2

// State is the pacing state shared by concurrent reportbuilder processes.
type State struct {
	Version   int         `json:"version"`
	Bucket    BucketState `json:"bucket"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// BucketState is the persisted token bucket.
type BucketState struct {
	Tokens       float64   `json:"tokens"`
	LastRefillAt time.Time `json:"last_refill_at"`

	// BlockedUntil is set from a 429's Retry-After. Nothing is sent before it.
	BlockedUntil time.Time `json:"blocked_until"`
}

// IsBlocked reports whether a Retry-After window is open.
func (b *BucketState) IsBlocked(now time.Time) bool {
	return !b.BlockedUntil.IsZero() && now.Before(b.BlockedUntil)
}

// BlockedFor returns how long until the Retry-After window closes.
func (b *BucketState) BlockedFor(now time.Time) time.Duration {
	if !b.IsBlocked(now) {
		return 0
	}
	return b.BlockedUntil.Sub(now)
}

// NewState returns an empty state. LastRefillAt stays zero so the first
// refill fills the bucket to capacity.
func NewState() *State {
	return &State{
		Version:   StateVersion,
		UpdatedAt: time.Now(),
	}
}
