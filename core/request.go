package core

import (
	"context"
	"time"
)

// PrecheckStatus is the integer pre-check status code returned in an RPC
// response. The concrete wire enumeration belongs to the
// transaction-body collaborator; the core only special-cases the
// handful of values that drive retry/regeneration decisions.
type PrecheckStatus int32

// The few statuses the execution loop special-cases directly.
// Everything else is either a terminal success/failure or routed through
// the request's ShouldRetryOnPrecheck hook.
const (
	StatusOk                 PrecheckStatus = 0
	StatusBusy               PrecheckStatus = 17
	StatusPlatformNotActive  PrecheckStatus = 23
	StatusTransactionExpired PrecheckStatus = 9
)

// maxKnownPrecheckStatus bounds the set of status values the core
// recognizes as "a real, if possibly unhandled, status" rather than
// garbage off the wire. The authoritative enum lives with the
// transaction-body collaborator; this bound is deliberately generous
// so a newly added status on the live network does not spuriously surface
// as ResponseStatusUnrecognizedError. TODO: replace with the real enum's
// max value once the collaborator exposes one.
const maxKnownPrecheckStatus PrecheckStatus = 200

func isKnownPrecheckStatus(s PrecheckStatus) bool {
	return s >= 0 && s <= maxKnownPrecheckStatus
}

// WireMessage is the opaque pair a request produces for one attempt: the
// encoded request body ready to hand to invoke, plus a free-form context
// value threaded through to BuildResult.
type WireMessage struct {
	Body    interface{}
	Context interface{}
}

// Result is the polymorphic outcome of a successful execute call. Concrete
// request types return whatever shape BuildResult produces; the core treats
// it opaquely.
type Result interface{}

// Request is the capability set the core needs from a Transaction or Query.
// A concrete request type (pingRequest, or the test harness's
// scriptedRequest) implements these methods directly; there is no class
// hierarchy. Wire responses travel through Invoke as opaque interface{}
// values.
type Request interface {
	// ExplicitNodeAccountIds returns the caller-pinned node order, if any.
	ExplicitNodeAccountIds() ([]NodeId, bool)
	// ExplicitTransactionId returns the caller-pinned transaction id, if any.
	ExplicitTransactionId() (TxId, bool)
	RequiresTransactionId() bool
	OperatorAccountId() (AccountId, bool)
	RegenerateOnExpiry() (bool, bool) // second bool: explicitly set
	FirstTransactionId() (TxId, bool)
	ChunkIndex() (int, bool)

	// BuildWireMessage is pure and may be called repeatedly per retry.
	BuildWireMessage(txId *TxId, nodeId NodeId) (WireMessage, error)
	// Invoke performs the RPC call itself, returning a raw transport error
	// classified via RpcError, or a wire response on success.
	Invoke(ctx context.Context, channel *ChannelBalancer, wire WireMessage) (interface{}, error)

	ClassifyPrecheck(resp interface{}) PrecheckStatus
	ShouldRetryOnPrecheck(status PrecheckStatus) bool
	ShouldRetryOnResponse(resp interface{}) bool

	BuildResult(resp interface{}, wireCtx interface{}, nodeId NodeId, txId *TxId) (Result, error)
	BuildPrecheckError(status PrecheckStatus, txId *TxId) error
}

// attemptOutcome is the classification of one node attempt.
type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	outcomeRetryImmediately
	outcomeRetryWithBackoff
	outcomeFatal
)

// attemptResult bundles the outcome with whatever payload it carries.
type attemptResult struct {
	outcome attemptOutcome
	result  Result
	err     error // the fatal error for outcomeFatal; the non-fatal error for the retry outcomes
}

// now is overridable in tests so NodeHealth/backoff decisions can be
// exercised deterministically.
var now = time.Now
