package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestClient(t *testing.T, ids ...NodeId) *Client {
	consensus := newTestConsensusNetwork(t, ids...)
	mirror := &MirrorNetwork{}
	c := newClient(consensus, mirror, 0, 0, nil)
	return c
}

// Happy path: a single explicit node returns OK on the first attempt.
func TestExecutionLoop_HappyPath(t *testing.T) {
	n1 := NodeId{Shard: 0, Realm: 0, Num: 3}
	client := newTestClient(t, n1)

	req := newScriptedRequest().withExplicitNodes(n1)
	req.queue(n1, scriptedOutcome{status: StatusOk, resultTag: "ok"})

	result, err := client.Loop().Execute(context.Background(), req, time.Second)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	res := result.(*scriptedResult)
	if res.Tag != "ok" || res.NodeId != n1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !client.Consensus().IsHealthy(0, time.Now()) {
		t.Fatalf("node should be healthy after success")
	}
}

// Transient failover: first candidate is Unavailable, second succeeds;
// the failed node is marked unhealthy with the initial backoff interval, and
// no backoff sleep occurs because the inner loop recovers immediately.
func TestExecutionLoop_TransientFailover(t *testing.T) {
	n1 := NodeId{Shard: 0, Realm: 0, Num: 3}
	n2 := NodeId{Shard: 0, Realm: 0, Num: 4}
	client := newTestClient(t, n1, n2)

	req := newScriptedRequest().withExplicitNodes(n1, n2)
	req.queue(n1, scriptedOutcome{rpcErr: &RpcError{Code: RpcCodeUnavailable, Description: "unavailable"}})
	req.queue(n2, scriptedOutcome{status: StatusOk, resultTag: "ok"})

	start := time.Now()
	result, err := client.Loop().Execute(context.Background(), req, time.Second)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	res := result.(*scriptedResult)
	if res.NodeId != n2 {
		t.Fatalf("expected success from n2, got %+v", res)
	}
	if elapsed > 100*time.Millisecond {
		t.Fatalf("expected no backoff sleep, took %v", elapsed)
	}

	snap := client.Consensus()
	if snap.IsHealthy(0, time.Now()) {
		t.Fatalf("n1 should be unhealthy immediately after failure")
	}
	if !snap.IsHealthy(0, time.Now().Add(300*time.Millisecond)) {
		t.Fatalf("n1 should recover after its backoff interval")
	}
}

// Circuit opening: five consecutive MarkUnhealthy calls against a single
// node open its circuit; the node stays unhealthy within the 5-minute
// penalty window and reports healthy (half-open) after it.
func TestExecutionLoop_CircuitOpensAfterFiveFailures(t *testing.T) {
	n1 := NodeId{Shard: 0, Realm: 0, Num: 3}
	snap := newTestConsensusNetwork(t, n1)

	for i := 0; i < 5; i++ {
		snap.MarkUnhealthy(0)
	}
	if snap.IsHealthy(0, time.Now()) {
		t.Fatalf("node should be unhealthy immediately after circuit opens")
	}
	if snap.IsHealthy(0, time.Now().Add(4*time.Minute)) {
		t.Fatalf("circuit should still be open after 4 minutes")
	}
	if !snap.IsHealthy(0, time.Now().Add(6*time.Minute)) {
		t.Fatalf("circuit should half-open after 5 minutes")
	}
}

// TransactionExpired regeneration: the first attempt returns
// TransactionExpired; the operator is present, so the loop regenerates the
// transaction id with a later valid-start and retries. With a single
// explicit node the round ends there, so the retry follows one backoff wait.
func TestExecutionLoop_RegeneratesOnTransactionExpired(t *testing.T) {
	n1 := NodeId{Shard: 0, Realm: 0, Num: 3}
	client := newTestClient(t, n1)
	operator := AccountId{Shard: 0, Realm: 0, Num: 1001}

	req := newScriptedRequest().withExplicitNodes(n1).withRequiresTransactionId().withOperator(operator)
	req.queue(n1,
		scriptedOutcome{status: StatusTransactionExpired},
		scriptedOutcome{status: StatusOk, resultTag: "ok"},
	)

	result, err := client.Loop().Execute(context.Background(), req, time.Second)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	res := result.(*scriptedResult)
	if res.Tag != "ok" {
		t.Fatalf("expected eventual success, got %+v", res)
	}

	calls := req.recordedCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 BuildWireMessage calls, got %d", len(calls))
	}
	first, second := calls[0].TxId, calls[1].TxId
	if first == nil || second == nil {
		t.Fatalf("both attempts should carry a transaction id")
	}
	if second.AccountId != operator {
		t.Fatalf("regenerated tx id should use the operator account, got %s", second.AccountId)
	}
	backwards := second.ValidStart.Seconds < first.ValidStart.Seconds ||
		(second.ValidStart.Seconds == first.ValidStart.Seconds && second.ValidStart.Nanos < first.ValidStart.Nanos)
	if backwards {
		t.Fatalf("regenerated valid-start went backwards: %+v -> %+v", first.ValidStart, second.ValidStart)
	}
}

// Overall timeout: every attempt returns Busy (retry-immediately), so
// the inner loop never drains into a backoff sleep on its own; with a short
// overall timeout the loop must still terminate with TimedOutError carrying
// the last PrecheckFailedError.
func TestExecutionLoop_OverallTimeout(t *testing.T) {
	n1 := NodeId{Shard: 0, Realm: 0, Num: 3}
	client := newTestClient(t, n1)

	req := newScriptedRequest().withExplicitNodes(n1)
	// Busy is retried immediately within a round; the explicit-node iterator
	// replays the same single index each round, so every round ends in
	// exactly one Busy attempt followed by a backoff consult. With a 50ms
	// overall budget and the client's default ~500ms initial interval, the
	// very first backoff consult exceeds the remaining budget and the loop
	// must terminate with TimedOutError rather than ever sleeping or
	// re-attempting.
	for i := 0; i < 5; i++ {
		req.queue(n1, scriptedOutcome{status: StatusBusy})
	}

	start := time.Now()
	_, err := client.Loop().Execute(context.Background(), req, 50*time.Millisecond)
	elapsed := time.Since(start)

	var timedOut *TimedOutError
	if !errors.As(err, &timedOut) {
		t.Fatalf("expected TimedOutError, got %v", err)
	}
	var precheck *PrecheckFailedError
	if !errors.As(timedOut.LastErr, &precheck) || precheck.Status != StatusBusy {
		t.Fatalf("expected last error to be a Busy precheck failure, got %v", timedOut.LastErr)
	}
	if elapsed > time.Second {
		t.Fatalf("timeout took too long: %v", elapsed)
	}
}

// maxAttempts is honored even when the overall timeout would not yet fire.
func TestExecutionLoop_MaxAttemptsExhausted(t *testing.T) {
	n1 := NodeId{Shard: 0, Realm: 0, Num: 3}
	client := newTestClient(t, n1)
	client.SetMaxAttempts(3)
	client.SetInitialBackoff(5 * time.Millisecond)
	client.SetMaxBackoff(10 * time.Millisecond)

	req := newScriptedRequest().withExplicitNodes(n1)
	for i := 0; i < 10; i++ {
		req.queue(n1, scriptedOutcome{status: StatusBusy})
	}

	_, err := client.Loop().Execute(context.Background(), req, time.Minute)
	var timedOut *TimedOutError
	if !errors.As(err, &timedOut) {
		t.Fatalf("expected TimedOutError, got %v", err)
	}
}

// NoHealthyNodes surfaces only when the very first attempt finds zero
// candidates — here, every node's circuit is already open.
func TestExecutionLoop_NoHealthyNodes(t *testing.T) {
	n1 := NodeId{Shard: 0, Realm: 0, Num: 3}
	client := newTestClient(t, n1)
	snap := client.Consensus()
	for i := 0; i < 5; i++ {
		snap.MarkUnhealthy(0)
	}

	req := newScriptedRequest() // no explicit nodes: sampled iterator
	_, err := client.Loop().Execute(context.Background(), req, time.Second)

	var noHealthy *NoHealthyNodesError
	if !errors.As(err, &noHealthy) {
		t.Fatalf("expected NoHealthyNodesError, got %v", err)
	}
}

// An unrecognized precheck status is fatal and never retried.
func TestExecutionLoop_UnrecognizedStatusIsFatal(t *testing.T) {
	n1 := NodeId{Shard: 0, Realm: 0, Num: 3}
	client := newTestClient(t, n1)

	req := newScriptedRequest().withExplicitNodes(n1)
	req.queue(n1, scriptedOutcome{status: PrecheckStatus(9999)})

	_, err := client.Loop().Execute(context.Background(), req, time.Second)
	var unrecognized *ResponseStatusUnrecognizedError
	if !errors.As(err, &unrecognized) {
		t.Fatalf("expected ResponseStatusUnrecognizedError, got %v", err)
	}
}
