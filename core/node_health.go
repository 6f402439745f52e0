package core

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Circuit-breaker tuning constants.
const (
	healthInitialBackoff    = 250 * time.Millisecond
	healthMaxBackoff        = 30 * time.Minute
	healthCircuitOpenFor    = 5 * time.Minute
	healthCircuitOpenAt     = 5 // consecutive failures before the circuit opens
	healthRecentlyPingedFor = 15 * time.Minute
)

// healthState tags the four NodeHealth variants. The zero value is
// healthStateUnused, matching a never-attempted node.
type healthState int

const (
	healthStateUnused healthState = iota
	healthStateHealthy
	healthStateUnhealthy
	healthStateCircuitOpen
)

// NodeHealth is the per-node circuit-breaker state machine. It is
// stored behind its own mutex so the owning snapshot need not be replaced on
// every health mutation, and the same *NodeHealth is carried forward by
// identity into successor snapshots for unchanged nodes.
type NodeHealth struct {
	mu sync.Mutex

	state healthState

	usedAt              time.Time     // healthStateHealthy
	backoffInterval     time.Duration // healthStateUnhealthy
	healthyAt           time.Time     // healthStateUnhealthy
	consecutiveFailures int           // healthStateUnhealthy / input to CircuitOpen
	reopenAt            time.Time     // healthStateCircuitOpen

	log *zap.SugaredLogger
}

// NewNodeHealth returns a fresh Unused health cell. A nil logger falls back
// to a newly built zap production logger, sugared.
func NewNodeHealth(log *zap.SugaredLogger) *NodeHealth {
	if log == nil {
		l, _ := zap.NewProduction()
		log = l.Sugar()
	}
	return &NodeHealth{state: healthStateUnused, log: log}
}

// MarkUnhealthy records a failed attempt observed at now. A node
// already in CircuitOpen is left unchanged — it is already serving its
// penalty. A node leaves CircuitOpen only through MarkHealthy, which clears
// the failure count, so its next failure starts again from the initial
// interval.
func (h *NodeHealth) MarkUnhealthy(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == healthStateCircuitOpen {
		return
	}

	failures := h.consecutiveFailures + 1
	if failures >= healthCircuitOpenAt {
		h.state = healthStateCircuitOpen
		h.reopenAt = now.Add(healthCircuitOpenFor)
		h.consecutiveFailures = failures
		h.log.Debugw("node circuit opened", "consecutiveFailures", failures, "reopenAt", h.reopenAt)
		return
	}

	interval := nextUnhealthyInterval(h.backoffInterval, failures)
	h.state = healthStateUnhealthy
	h.backoffInterval = interval
	h.healthyAt = now.Add(interval)
	h.consecutiveFailures = failures
	h.log.Debugw("node marked unhealthy", "consecutiveFailures", failures, "backoff", interval)
}

// nextUnhealthyInterval computes the backoff interval for the nth consecutive
// failure by seeding an ExponentialBackoff with the previous interval (the
// first failure seeds with the package's initial interval) and drawing its
// next value, capped at the 30-minute ceiling.
func nextUnhealthyInterval(previous time.Duration, failures int) time.Duration {
	if failures <= 1 || previous == 0 {
		return healthInitialBackoff
	}
	eb := NewExponentialBackoff(previous, healthMaxBackoff, Unlimited())
	next, ok := eb.Next()
	if !ok {
		return healthMaxBackoff
	}
	if next > healthMaxBackoff {
		return healthMaxBackoff
	}
	return next
}

// MarkHealthy unconditionally records a successful attempt at now, clearing
// any circuit-open state and failure count.
func (h *NodeHealth) MarkHealthy(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = healthStateHealthy
	h.usedAt = now
	h.consecutiveFailures = 0
	h.log.Debugw("node marked healthy", "usedAt", now)
}

// IsHealthy reports whether the node should be considered for selection at
// now.
func (h *NodeHealth) IsHealthy(now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.state {
	case healthStateUnused, healthStateHealthy:
		return true
	case healthStateUnhealthy:
		return !now.Before(h.healthyAt)
	case healthStateCircuitOpen:
		return !now.Before(h.reopenAt)
	default:
		return false
	}
}

// RecentlyPinged reports whether the node was seen recently enough that the
// NodeIterator can skip its inline liveness ping.
func (h *NodeHealth) RecentlyPinged(now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.state {
	case healthStateHealthy:
		return now.Before(h.usedAt.Add(healthRecentlyPingedFor))
	case healthStateUnhealthy:
		return now.Before(h.healthyAt)
	case healthStateCircuitOpen:
		return now.Before(h.reopenAt)
	default:
		return false
	}
}
