package core

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Defaults for ExponentialBackoff.
const (
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 60 * time.Second
	DefaultMaxElapsed     = 15 * time.Minute

	backoffMultiplier          = 1.5
	backoffRandomizationFactor = 0.5
)

// ExponentialBackoff is a stateful, randomized backoff with an optional
// elapsed-time limit. It wraps backoff.ExponentialBackOff, whose
// InitialInterval/MaxInterval/Multiplier/RandomizationFactor/MaxElapsedTime
// fields and Stop-on-exhaustion NextBackOff contract are exactly the
// algorithm this core needs.
type ExponentialBackoff struct {
	eb *backoff.ExponentialBackOff
}

// MaxElapsed expresses "unlimited" (zero value) or "limited to a duration".
type MaxElapsed struct {
	Limited bool
	Limit   time.Duration
}

// Unlimited returns a MaxElapsed with no cap.
func Unlimited() MaxElapsed { return MaxElapsed{} }

// LimitedTo returns a MaxElapsed capped at d.
func LimitedTo(d time.Duration) MaxElapsed { return MaxElapsed{Limited: true, Limit: d} }

// NewExponentialBackoff builds a backoff with the given initial interval,
// max interval, and elapsed-time limit, using a fixed multiplier (1.5) and
// randomization factor (0.5).
func NewExponentialBackoff(initial, max time.Duration, maxElapsed MaxElapsed) *ExponentialBackoff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = initial
	eb.MaxInterval = max
	eb.Multiplier = backoffMultiplier
	eb.RandomizationFactor = backoffRandomizationFactor
	if maxElapsed.Limited {
		eb.MaxElapsedTime = maxElapsed.Limit
	} else {
		eb.MaxElapsedTime = 0 // backoff.ExponentialBackOff treats 0 as unlimited
	}
	eb.Reset()
	return &ExponentialBackoff{eb: eb}
}

// DefaultExponentialBackoff builds a backoff using the package defaults.
func DefaultExponentialBackoff() *ExponentialBackoff {
	return NewExponentialBackoff(DefaultInitialBackoff, DefaultMaxBackoff, LimitedTo(DefaultMaxElapsed))
}

// Next returns the next backoff duration, or ok=false once the elapsed-time
// limit has been exceeded — after which it keeps returning ok=false forever.
func (b *ExponentialBackoff) Next() (d time.Duration, ok bool) {
	next := b.eb.NextBackOff()
	if next == backoff.Stop {
		return 0, false
	}
	return next, true
}

// Reset restores the initial interval and resets the elapsed-time clock.
func (b *ExponentialBackoff) Reset() {
	b.eb.Reset()
}
