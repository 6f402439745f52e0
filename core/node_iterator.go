package core

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// NodeIterator yields candidate node indices for one outer-loop attempt
// round. In passthrough mode (explicit node ids given on the
// request) it replays the caller's order verbatim with no liveness ping.
// Otherwise it draws a uniform random sample without replacement, sized to
// one third of the currently healthy set, and pings any candidate that
// hasn't been seen recently before yielding it.
type NodeIterator struct {
	loop        *ExecutionLoop
	consensus   *ConsensusNetwork
	passthrough bool
	sample      []int
	pos         int
}

// newPassthroughIterator replays explicit node indices in order, unpinged.
func newPassthroughIterator(loop *ExecutionLoop, consensus *ConsensusNetwork, indices []int) *NodeIterator {
	return &NodeIterator{loop: loop, consensus: consensus, passthrough: true, sample: indices}
}

// newSampledIterator draws ⌈|healthy|/3⌉ indices without replacement from
// the currently healthy set, via in-place swap-with-last + pop.
func newSampledIterator(loop *ExecutionLoop, consensus *ConsensusNetwork, at time.Time) *NodeIterator {
	src := consensus.HealthyIndices(at)
	k := int(math.Ceil(float64(len(src)) / 3.0))
	if k > len(src) {
		k = len(src)
	}
	sample := make([]int, 0, k)
	working := src
	for i := 0; i < k && len(working) > 0; i++ {
		j := rand.Intn(len(working))
		sample = append(sample, working[j])
		last := len(working) - 1
		working[j] = working[last]
		working = working[:last]
	}
	return &NodeIterator{loop: loop, consensus: consensus, passthrough: false, sample: sample}
}

// Next returns the next candidate index that is live, or ok=false once the
// sample is exhausted. Non-passthrough candidates not recently pinged are
// verified with an inline Ping sub-request before being yielded; a
// candidate that fails the ping is skipped, not retried.
func (it *NodeIterator) Next(ctx context.Context) (int, bool) {
	for it.pos < len(it.sample) {
		i := it.sample[it.pos]
		it.pos++

		if it.passthrough {
			return i, true
		}
		if it.consensus.RecentlyPinged(i, now()) {
			return i, true
		}
		if it.ping(ctx, i) {
			return i, true
		}
	}
	return 0, false
}

// ping synthesizes a Ping sub-request against the same execution loop, with
// no operator, no regeneration, and no nested pings. The ping is not counted
// against the calling Execute's attempt counter and does not consult its
// backoff; its outcome only updates the node's health.
func (it *NodeIterator) ping(ctx context.Context, i int) bool {
	req := newPingRequest(it.consensus.NodeIdAt(i))
	_, err := it.loop.executeAgainstNode(ctx, req, it.consensus, i)
	return err == nil
}
