package core

import (
	"context"
	"strconv"
	"sync"
)

// scriptedOutcome is one canned RPC result a scriptedRequest hands back for a
// given node attempt.
type scriptedOutcome struct {
	rpcErr          *RpcError
	status          PrecheckStatus
	retryOnResponse bool
	retryOnPrecheck bool
	resultTag       string
}

// scriptedResult is the opaque Result a scriptedRequest's BuildResult
// produces on success.
type scriptedResult struct {
	Tag    string
	NodeId NodeId
	TxId   *TxId
}

// scriptedRequest is a minimal Request implementation driving ExecutionLoop
// end to end: per node id, a FIFO queue of scriptedOutcome is consumed one
// per attempt against that node.
type scriptedRequest struct {
	mu sync.Mutex

	explicitNodes []NodeId
	haveExplicit  bool

	explicitTxId *TxId

	requiresTxId bool

	operatorAcct *AccountId

	regenerate    bool
	regenerateSet bool

	firstTxId *TxId
	chunk     *int

	byNode map[NodeId][]scriptedOutcome

	calls []scriptedCall
}

type scriptedCall struct {
	NodeId NodeId
	TxId   *TxId
}

func newScriptedRequest() *scriptedRequest {
	return &scriptedRequest{byNode: make(map[NodeId][]scriptedOutcome)}
}

func (r *scriptedRequest) withExplicitNodes(ids ...NodeId) *scriptedRequest {
	r.explicitNodes = ids
	r.haveExplicit = true
	return r
}

func (r *scriptedRequest) withRequiresTransactionId() *scriptedRequest {
	r.requiresTxId = true
	return r
}

func (r *scriptedRequest) withOperator(acct AccountId) *scriptedRequest {
	r.operatorAcct = &acct
	return r
}

func (r *scriptedRequest) queue(node NodeId, outcomes ...scriptedOutcome) *scriptedRequest {
	r.byNode[node] = append(r.byNode[node], outcomes...)
	return r
}

func (r *scriptedRequest) recordedCalls() []scriptedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]scriptedCall, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *scriptedRequest) ExplicitNodeAccountIds() ([]NodeId, bool) {
	return r.explicitNodes, r.haveExplicit
}

func (r *scriptedRequest) ExplicitTransactionId() (TxId, bool) {
	if r.explicitTxId == nil {
		return TxId{}, false
	}
	return *r.explicitTxId, true
}

func (r *scriptedRequest) RequiresTransactionId() bool { return r.requiresTxId }

func (r *scriptedRequest) OperatorAccountId() (AccountId, bool) {
	if r.operatorAcct == nil {
		return AccountId{}, false
	}
	return *r.operatorAcct, true
}

func (r *scriptedRequest) RegenerateOnExpiry() (bool, bool) {
	return r.regenerate, r.regenerateSet
}

func (r *scriptedRequest) FirstTransactionId() (TxId, bool) {
	if r.firstTxId == nil {
		return TxId{}, false
	}
	return *r.firstTxId, true
}

func (r *scriptedRequest) ChunkIndex() (int, bool) {
	if r.chunk == nil {
		return 0, false
	}
	return *r.chunk, true
}

func (r *scriptedRequest) BuildWireMessage(txId *TxId, nodeId NodeId) (WireMessage, error) {
	r.mu.Lock()
	r.calls = append(r.calls, scriptedCall{NodeId: nodeId, TxId: txId})
	r.mu.Unlock()
	return WireMessage{Context: nodeId}, nil
}

func (r *scriptedRequest) Invoke(ctx context.Context, channel *ChannelBalancer, wire WireMessage) (interface{}, error) {
	nodeId := wire.Context.(NodeId)
	r.mu.Lock()
	queue := r.byNode[nodeId]
	var out scriptedOutcome
	if len(queue) > 0 {
		out = queue[0]
		r.byNode[nodeId] = queue[1:]
	} else {
		out = scriptedOutcome{status: StatusOk, resultTag: "default"}
	}
	r.mu.Unlock()

	if out.rpcErr != nil {
		return nil, out.rpcErr
	}
	return out, nil
}

func (r *scriptedRequest) ClassifyPrecheck(resp interface{}) PrecheckStatus {
	return resp.(scriptedOutcome).status
}

func (r *scriptedRequest) ShouldRetryOnPrecheck(status PrecheckStatus) bool {
	return false
}

func (r *scriptedRequest) ShouldRetryOnResponse(resp interface{}) bool {
	return resp.(scriptedOutcome).retryOnResponse
}

func (r *scriptedRequest) BuildResult(resp interface{}, wireCtx interface{}, nodeId NodeId, txId *TxId) (Result, error) {
	out := resp.(scriptedOutcome)
	return &scriptedResult{Tag: out.resultTag, NodeId: nodeId, TxId: txId}, nil
}

func (r *scriptedRequest) BuildPrecheckError(status PrecheckStatus, txId *TxId) error {
	return &PrecheckFailedError{Status: int32(status), TxId: txId}
}

// newTestConsensusNetwork builds a consensus snapshot over the given node
// ids, each bound to a distinct loopback endpoint. No real socket connects:
// grpc.NewClient (used by dialEndpoint) dials lazily, and tests never invoke
// the real channel — scriptedRequest.Invoke bypasses it entirely.
func newTestConsensusNetwork(t interface{ Fatalf(string, ...interface{}) }, ids ...NodeId) *ConsensusNetwork {
	addrMap := make(map[string]NodeId, len(ids))
	for i, id := range ids {
		addrMap[portAddr(i)] = id
	}
	snap, err := FromAddressMap(nil, addrMap, nil)
	if err != nil {
		t.Fatalf("build test consensus network: %v", err)
	}
	return snap
}

func portAddr(i int) string {
	return "127.0.0.1:" + strconv.Itoa(50100+i)
}
