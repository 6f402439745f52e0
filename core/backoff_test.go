package core

import (
	"testing"
	"time"
)

func TestExponentialBackoff_DrawsPositiveAndWithinRandomizedCap(t *testing.T) {
	b := NewExponentialBackoff(10*time.Millisecond, 100*time.Millisecond, Unlimited())
	var prevCandidates []time.Duration
	for i := 0; i < 10; i++ {
		d, ok := b.Next()
		if !ok {
			t.Fatalf("unlimited backoff should never report exhausted")
		}
		if d <= 0 {
			t.Fatalf("expected a strictly positive duration, got %v", d)
		}
		// The interval is capped at 100ms; each draw is randomized by +-50%
		// around it, so no draw exceeds 150ms.
		if d > 150*time.Millisecond {
			t.Fatalf("duration %v exceeded the randomized cap", d)
		}
		prevCandidates = append(prevCandidates, d)
	}
	if len(prevCandidates) != 10 {
		t.Fatalf("expected 10 samples")
	}
}

func TestExponentialBackoff_StopsAfterMaxElapsed(t *testing.T) {
	b := NewExponentialBackoff(5*time.Millisecond, 10*time.Millisecond, LimitedTo(1*time.Millisecond))
	_, ok := b.Next()
	if ok {
		t.Fatalf("expected the first call to already exceed a 1ms budget given a 5ms initial interval")
	}
	// Once exhausted, it must keep returning not-ok.
	if _, ok := b.Next(); ok {
		t.Fatalf("expected exhausted backoff to stay exhausted")
	}
}

func TestExponentialBackoff_ResetRestoresInitialInterval(t *testing.T) {
	b := NewExponentialBackoff(5*time.Millisecond, 1*time.Second, Unlimited())
	for i := 0; i < 5; i++ {
		if _, ok := b.Next(); !ok {
			t.Fatalf("unexpected exhaustion")
		}
	}
	b.Reset()
	d, ok := b.Next()
	if !ok {
		t.Fatalf("unexpected exhaustion after reset")
	}
	// Right after Reset, the first draw should be close to the initial
	// interval (within its randomization band), not a later, grown value.
	if d > 2*5*time.Millisecond {
		t.Fatalf("expected a reset backoff to draw near the initial interval, got %v", d)
	}
}
