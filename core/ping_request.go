package core

import "context"

// pingRequest is the synthesized liveness probe the NodeIterator issues
// against a candidate that hasn't been seen recently. It carries no
// operator, never regenerates, and is never itself pinged — executeAgainstNode
// bypasses the iterator entirely, so there is no recursion to guard against.
type pingRequest struct {
	target NodeId
}

func newPingRequest(target NodeId) *pingRequest {
	return &pingRequest{target: target}
}

func (p *pingRequest) ExplicitNodeAccountIds() ([]NodeId, bool) { return []NodeId{p.target}, true }
func (p *pingRequest) ExplicitTransactionId() (TxId, bool)      { return TxId{}, false }
func (p *pingRequest) RequiresTransactionId() bool              { return false }
func (p *pingRequest) OperatorAccountId() (AccountId, bool)     { return AccountId{}, false }
func (p *pingRequest) RegenerateOnExpiry() (bool, bool)         { return false, true }
func (p *pingRequest) FirstTransactionId() (TxId, bool)         { return TxId{}, false }
func (p *pingRequest) ChunkIndex() (int, bool)                  { return 0, false }

func (p *pingRequest) BuildWireMessage(txId *TxId, nodeId NodeId) (WireMessage, error) {
	return WireMessage{Body: pingWireBody{NodeId: nodeId}}, nil
}

// pingMethod is a free, zero-cost consensus-node query (an account balance
// lookup) used purely as a liveness probe; its response is discarded.
const pingMethod = "/proto.CryptoService/cryptoGetBalance"

func (p *pingRequest) Invoke(ctx context.Context, channel *ChannelBalancer, wire WireMessage) (interface{}, error) {
	var resp pingWireResponse
	if err := channel.Invoke(ctx, pingMethod, wire.Body, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (p *pingRequest) ClassifyPrecheck(resp interface{}) PrecheckStatus { return StatusOk }
func (p *pingRequest) ShouldRetryOnPrecheck(status PrecheckStatus) bool { return false }
func (p *pingRequest) ShouldRetryOnResponse(resp interface{}) bool { return false }

func (p *pingRequest) BuildResult(resp interface{}, wireCtx interface{}, nodeId NodeId, txId *TxId) (Result, error) {
	return resp, nil
}

func (p *pingRequest) BuildPrecheckError(status PrecheckStatus, txId *TxId) error {
	return &PrecheckFailedError{Status: int32(status), TxId: txId}
}

type pingWireBody struct {
	NodeId NodeId
}

type pingWireResponse struct{}
