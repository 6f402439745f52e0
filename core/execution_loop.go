package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ExecutionLoop drives one request to completion against the client's
// current consensus snapshot. It is a thin shell around the client:
// all mutable state for a single Execute call lives in the loop-local
// executionState, never on the ExecutionLoop itself, so one loop safely
// serves concurrent callers.
type ExecutionLoop struct {
	client *Client
}

func newExecutionLoop(client *Client) *ExecutionLoop {
	return &ExecutionLoop{client: client}
}

// executionState is the per-call mutable budget of the outer retry loop: the
// attempt counter, the backoff instance, and the last non-fatal error.
// Inline NodeIterator pings do not draw on it: a ping is neither counted as
// an attempt nor checked against the backoff's elapsed-time limit.
type executionState struct {
	attempts int
	backoff  *ExponentialBackoff
	lastErr  error
}

// Execute runs request to completion or to a terminal error. overallTimeout,
// if non-zero, overrides the client's configured request timeout for this
// call only.
func (l *ExecutionLoop) Execute(ctx context.Context, request Request, overallTimeout time.Duration) (Result, error) {
	// correlationId ties every log line for this call together across
	// retries and node failovers, rather than relying on timestamps alone.
	correlationId := uuid.NewString()
	log := l.client.Log().WithField("correlationId", correlationId)

	consensus := l.client.Consensus()

	operator, haveOperator := l.resolveRegenerationOperator(request)

	if overallTimeout <= 0 {
		overallTimeout = l.client.RequestTimeout()
	}
	state := &executionState{
		backoff: NewExponentialBackoff(l.client.InitialBackoff(), l.client.MaxBackoff(), LimitedTo(overallTimeout)),
	}

	var explicitIndices []int
	if ids, ok := request.ExplicitNodeAccountIds(); ok {
		idx, err := consensus.Indices(ids)
		if err != nil {
			return nil, err
		}
		explicitIndices = idx
	}

	txId, err := l.resolveInitialTransactionId(request, operator, haveOperator)
	if err != nil {
		return nil, err
	}

	madeAnyAttempt := false
	for {
		var it *NodeIterator
		if explicitIndices != nil {
			it = newPassthroughIterator(l, consensus, explicitIndices)
		} else {
			it = newSampledIterator(l, consensus, now())
			if len(it.sample) == 0 && !madeAnyAttempt {
				return nil, &NoHealthyNodesError{}
			}
		}

		for {
			i, ok := it.Next(ctx)
			if !ok {
				break
			}
			madeAnyAttempt = true

			if state.attempts >= l.client.MaxAttempts() {
				log.Warnf("giving up after %d attempts", state.attempts)
				return nil, &TimedOutError{LastErr: state.lastErr}
			}
			state.attempts++
			attemptLog := log.WithField("attempt", state.attempts).WithField("node", consensus.NodeIdAt(i).String())

			res := l.step(ctx, request, consensus, i, &txId, operator, haveOperator)
			switch res.outcome {
			case outcomeSuccess:
				attemptLog.Debug("attempt succeeded")
				return res.result, nil
			case outcomeFatal:
				attemptLog.Warnf("attempt failed fatally: %v", res.err)
				return nil, res.err
			case outcomeRetryImmediately:
				attemptLog.Debugf("retrying immediately: %v", res.err)
				state.lastErr = res.err
				continue
			case outcomeRetryWithBackoff:
				attemptLog.Debugf("retrying after backoff: %v", res.err)
				state.lastErr = res.err
				goto backoffAndRestart
			}
		}

	backoffAndRestart:
		d, ok := state.backoff.Next()
		if !ok {
			log.Warnf("backoff budget exhausted after %d attempts", state.attempts)
			return nil, &TimedOutError{LastErr: state.lastErr}
		}
		select {
		case <-ctx.Done():
			return nil, &TimedOutError{LastErr: ctx.Err()}
		case <-time.After(d):
		}
	}
}

// executeAgainstNode performs exactly the per-node step against a specific
// index, outside the outer retry loop, for the NodeIterator's inline ping.
// A RetryWithBackoff or RetryImmediately classification is treated as a
// failed ping — the iterator skips the candidate rather than sleeping.
func (l *ExecutionLoop) executeAgainstNode(ctx context.Context, request Request, consensus *ConsensusNetwork, i int) (Result, error) {
	res := l.step(ctx, request, consensus, i, new(*TxId), AccountId{}, false)
	if res.outcome == outcomeSuccess {
		return res.result, nil
	}
	if res.err != nil {
		return nil, res.err
	}
	return nil, ErrRpc
}

// resolveRegenerationOperator implements the "choose operator-for-
// regeneration" rule.
func (l *ExecutionLoop) resolveRegenerationOperator(request Request) (AccountId, bool) {
	if _, explicit := request.ExplicitTransactionId(); explicit {
		return AccountId{}, false
	}
	regenerate := l.client.DefaultRegenerate()
	if v, set := request.RegenerateOnExpiry(); set {
		regenerate = v
	}
	if !regenerate {
		return AccountId{}, false
	}
	if firstTx, ok := request.FirstTransactionId(); ok {
		return firstTx.AccountId, true
	}
	if acct, ok := request.OperatorAccountId(); ok {
		return acct, true
	}
	if op, ok := l.client.Operator(); ok {
		return op.AccountId, true
	}
	return AccountId{}, false
}

// resolveInitialTransactionId implements the initial transaction id
// priority: explicit, then derived from firstTxId+chunkIndex, then from the
// request's operator account, then the client's operator account — only
// when the request actually needs one.
func (l *ExecutionLoop) resolveInitialTransactionId(request Request, operator AccountId, haveOperator bool) (*TxId, error) {
	if !request.RequiresTransactionId() {
		return nil, nil
	}
	if explicit, ok := request.ExplicitTransactionId(); ok {
		return &explicit, nil
	}
	if firstTx, ok := request.FirstTransactionId(); ok {
		chunk := 0
		if idx, ok := request.ChunkIndex(); ok {
			chunk = idx
		}
		derived := deriveChunkTransactionId(firstTx, chunk)
		return &derived, nil
	}
	if acct, ok := request.OperatorAccountId(); ok {
		return &TxId{AccountId: acct, ValidStart: validStartNow()}, nil
	}
	if op, ok := l.client.Operator(); ok {
		return &TxId{AccountId: op.AccountId, ValidStart: validStartNow()}, nil
	}
	_ = haveOperator
	return nil, &BadConfigError{Msg: "request requires a transaction id but no operator is configured"}
}

func deriveChunkTransactionId(first TxId, chunkIndex int) TxId {
	vs := first.ValidStart
	vs.Nanos += int32(chunkIndex)
	return TxId{AccountId: first.AccountId, ValidStart: vs}
}

func validStartNow() ValidStart {
	t := now()
	return ValidStart{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

// step implements the per-node classification of an attempt.
func (l *ExecutionLoop) step(ctx context.Context, request Request, consensus *ConsensusNetwork, i int, txId **TxId, operator AccountId, haveOperator bool) attemptResult {
	nodeId := consensus.NodeIdAt(i)
	channel := consensus.Channel(i)
	if channel == nil {
		return attemptResult{outcome: outcomeRetryImmediately, err: &UnknownNodeError{Id: nodeId}}
	}

	wire, err := request.BuildWireMessage(*txId, nodeId)
	if err != nil {
		return attemptResult{outcome: outcomeFatal, err: err}
	}

	resp, err := request.Invoke(ctx, channel, wire)
	if err != nil {
		if rpcErr, ok := asRpcError(err); ok && rpcErr.Recoverable() {
			consensus.MarkUnhealthy(i)
			return attemptResult{outcome: outcomeRetryImmediately, err: rpcErr}
		}
		return attemptResult{outcome: outcomeFatal, err: err}
	}
	consensus.MarkHealthy(i)

	status := request.ClassifyPrecheck(resp)
	switch {
	case status == StatusOk && request.ShouldRetryOnResponse(resp):
		return attemptResult{outcome: outcomeRetryWithBackoff, err: request.BuildPrecheckError(StatusOk, *txId)}
	case status == StatusOk:
		result, err := request.BuildResult(resp, wire.Context, nodeId, *txId)
		if err != nil {
			return attemptResult{outcome: outcomeFatal, err: err}
		}
		return attemptResult{outcome: outcomeSuccess, result: result}
	case status == StatusBusy || status == StatusPlatformNotActive:
		return attemptResult{outcome: outcomeRetryImmediately, err: request.BuildPrecheckError(status, *txId)}
	case status == StatusTransactionExpired && !explicitTxId(request) && haveOperator:
		regenerated := TxId{AccountId: operator, ValidStart: validStartNow()}
		*txId = &regenerated
		return attemptResult{outcome: outcomeRetryImmediately, err: request.BuildPrecheckError(status, *txId)}
	case !isKnownPrecheckStatus(status):
		return attemptResult{outcome: outcomeFatal, err: &ResponseStatusUnrecognizedError{Value: int32(status)}}
	case request.ShouldRetryOnPrecheck(status):
		return attemptResult{outcome: outcomeRetryWithBackoff, err: request.BuildPrecheckError(status, *txId)}
	default:
		return attemptResult{outcome: outcomeFatal, err: request.BuildPrecheckError(status, *txId)}
	}
}

func explicitTxId(request Request) bool {
	_, ok := request.ExplicitTransactionId()
	return ok
}

func asRpcError(err error) (*RpcError, bool) {
	var rpcErr *RpcError
	if errors.As(err, &rpcErr) {
		return rpcErr, true
	}
	return nil, false
}
