package core

import (
	"errors"
	"fmt"
)

// Sentinel kinds for the error taxonomy. Callers match with errors.Is;
// the concrete wrapping types below carry the per-kind payload.
var (
	ErrBadConfig            = errors.New("bad config")
	ErrUnknownNode          = errors.New("unknown node")
	ErrRpc                  = errors.New("rpc error")
	ErrPrecheckFailed       = errors.New("precheck failed")
	ErrResponseUnrecognized = errors.New("response status unrecognized")
	ErrTimedOut             = errors.New("timed out")
	ErrNoHealthyNodes       = errors.New("no healthy nodes")
)

// RpcError wraps a raw transport failure. Code follows the small set of
// transport-layer codes the execution loop cares about; everything
// else is opaque and fatal.
type RpcError struct {
	Code        RpcCode
	Description string
	Cause       error
}

// RpcCode enumerates the transport-layer failure codes the execution loop
// distinguishes. Unavailable and ResourceExhausted are recovered by marking
// the node unhealthy and advancing to the next candidate; every other code
// is fatal and propagates to the caller.
type RpcCode int

const (
	RpcCodeUnknown RpcCode = iota
	RpcCodeUnavailable
	RpcCodeResourceExhausted
	RpcCodeOther
)

func (e *RpcError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rpc: %s: %v", e.Description, e.Cause)
	}
	return fmt.Sprintf("rpc: %s", e.Description)
}

func (e *RpcError) Unwrap() error { return ErrRpc }

// Recoverable reports whether the node should be marked unhealthy and the
// execution loop should advance to the next candidate rather than fail.
func (e *RpcError) Recoverable() bool {
	return e.Code == RpcCodeUnavailable || e.Code == RpcCodeResourceExhausted
}

// PrecheckFailedError is constructed by the request (buildPrecheckError) and
// may be recovered (retry-immediate, retry-backoff, regenerate) or surfaced
// verbatim to the caller.
type PrecheckFailedError struct {
	Status int32
	TxId   *TxId
}

func (e *PrecheckFailedError) Error() string {
	if e.TxId != nil {
		return fmt.Sprintf("precheck failed: status=%d tx=%s", e.Status, e.TxId)
	}
	return fmt.Sprintf("precheck failed: status=%d", e.Status)
}

func (e *PrecheckFailedError) Unwrap() error { return ErrPrecheckFailed }

// ResponseStatusUnrecognizedError surfaces a status code outside the known
// set; it is always fatal and never retried.
type ResponseStatusUnrecognizedError struct {
	Value int32
}

func (e *ResponseStatusUnrecognizedError) Error() string {
	return fmt.Sprintf("response status unrecognized: %d", e.Value)
}

func (e *ResponseStatusUnrecognizedError) Unwrap() error { return ErrResponseUnrecognized }

// TimedOutError is returned when the overall budget (maxAttempts or
// ExponentialBackoff.maxElapsed) is exhausted. LastErr carries the last
// non-fatal error observed for diagnostics.
type TimedOutError struct {
	LastErr error
}

func (e *TimedOutError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("timed out: last error: %v", e.LastErr)
	}
	return "timed out"
}

func (e *TimedOutError) Unwrap() error { return ErrTimedOut }

// NoHealthyNodesError is surfaced only when the iterator produced zero
// candidates on the very first attempt; any later attempt instead surfaces
// TimedOutError.
type NoHealthyNodesError struct{}

func (e *NoHealthyNodesError) Error() string { return "no healthy nodes" }

func (e *NoHealthyNodesError) Unwrap() error { return ErrNoHealthyNodes }

// UnknownNodeError reports that an explicit node id from the request is not
// present in the current consensus snapshot.
type UnknownNodeError struct {
	Id NodeId
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node: %s", e.Id)
}

func (e *UnknownNodeError) Unwrap() error { return ErrUnknownNode }

// BadConfigError reports malformed JSON, an unknown preset name, or an
// unparseable endpoint.
type BadConfigError struct {
	Msg string
}

func (e *BadConfigError) Error() string { return fmt.Sprintf("bad config: %s", e.Msg) }

func (e *BadConfigError) Unwrap() error { return ErrBadConfig }
