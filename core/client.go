package core

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Default client config toggles.
const (
	DefaultMaxAttempts    = 10
	DefaultRequestTimeout = 15 * time.Minute
)

// OperatorConfig names the paying/signing account for generated transaction
// ids. Key material is stored opaquely — parsing and applying it is
// the signing collaborator's job; the core never reads it.
type OperatorConfig struct {
	AccountId     AccountId
	PrivateKeyPEM string
}

// Client is the top-level shell: two atomic snapshot cells
// (consensus, mirror), a mutex-protected operator cell, a ledger id cell,
// a set of config toggles published with release ordering and read with
// relaxed ordering (via atomic.Bool/Int64 primitives), the execution
// loop, and the address-book refresher handle.
type Client struct {
	consensus *AtomicSnapshot[ConsensusNetwork]
	mirror    *AtomicSnapshot[MirrorNetwork]

	operatorMu sync.RWMutex
	operator   *OperatorConfig

	ledgerIdMu sync.RWMutex
	ledgerId   []byte

	autoValidateChecksums atomic.Bool
	defaultRegenerate     atomic.Bool
	maxAttempts           atomic.Int64
	initialBackoffNanos   atomic.Int64
	maxBackoffNanos       atomic.Int64
	requestTimeoutNanos   atomic.Int64

	loop      *ExecutionLoop
	refresher *AddressBookRefresher

	shard, realm uint64

	log *logrus.Entry
}

func newClient(consensus *ConsensusNetwork, mirror *MirrorNetwork, shard, realm uint64, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	c := &Client{
		consensus: NewAtomicSnapshot(consensus),
		mirror:    NewAtomicSnapshot(mirror),
		shard:     shard,
		realm:     realm,
		log:       log.WithField("component", "client"),
	}
	c.defaultRegenerate.Store(true)
	c.maxAttempts.Store(DefaultMaxAttempts)
	c.initialBackoffNanos.Store(int64(DefaultInitialBackoff))
	c.maxBackoffNanos.Store(int64(DefaultMaxBackoff))
	c.requestTimeoutNanos.Store(int64(DefaultRequestTimeout))
	c.loop = newExecutionLoop(c)
	return c
}

// ForNetwork builds a client from a named preset, consensus address map
// first then mirror network. Both create their channels at construction;
// the gRPC client connects lazily on the first call.
func ForNetwork(name string, shard, realm uint64, log *logrus.Entry) (*Client, error) {
	addrs, ok := presetAddressMap(name)
	if !ok {
		return nil, &BadConfigError{Msg: "unknown network preset: " + name}
	}
	idMap := make(map[string]NodeId, len(addrs))
	for addr, idStr := range addrs {
		id, err := ParseAccountId(idStr)
		if err != nil {
			return nil, err
		}
		idMap[addr] = NodeId(id)
	}
	consensus, err := FromAddressMap(nil, idMap, zapSugarFor(log))
	if err != nil {
		return nil, err
	}
	mirror, err := presetMirrorNetwork(name)
	if err != nil {
		return nil, err
	}
	return newClient(consensus, mirror, shard, realm, log), nil
}

// ForAddressMap builds a client from an explicit address map plus an optional
// mirror network.
func ForAddressMap(addrMap map[string]string, mirror *MirrorNetwork, shard, realm uint64, log *logrus.Entry) (*Client, error) {
	idMap := make(map[string]NodeId, len(addrMap))
	for addr, idStr := range addrMap {
		id, err := ParseAccountId(idStr)
		if err != nil {
			return nil, err
		}
		idMap[addr] = NodeId(id)
	}
	consensus, err := FromAddressMap(nil, idMap, zapSugarFor(log))
	if err != nil {
		return nil, err
	}
	if mirror == nil {
		mirror = &MirrorNetwork{}
	}
	return newClient(consensus, mirror, shard, realm, log), nil
}

// ForMirrorNetwork bootstraps a client with an empty consensus snapshot,
// runs one synchronous address-book query against the given mirror network,
// and installs the (optionally plaintext-filtered) result before returning.
func ForMirrorNetwork(mirror *MirrorNetwork, plaintextOnly bool, shard, realm uint64, log *logrus.Entry) (*Client, error) {
	c := newClient(NewEmptyConsensusNetwork(), mirror, shard, realm, log)
	book, err := queryAddressBook(mirror, shard, realm)
	if err != nil {
		return nil, err
	}
	if plaintextOnly {
		book = filterPlaintext(book)
	}
	if _, err := c.consensus.Update(func(prev *ConsensusNetwork) (*ConsensusNetwork, error) {
		return FromAddressBook(prev, book, zapSugarFor(log))
	}); err != nil {
		return nil, err
	}
	return c, nil
}

// Consensus returns the current consensus snapshot.
func (c *Client) Consensus() *ConsensusNetwork { return c.consensus.Load() }

// Mirror returns the current mirror snapshot.
func (c *Client) Mirror() *MirrorNetwork { return c.mirror.Load() }

// Operator returns the configured operator, if any.
func (c *Client) Operator() (*OperatorConfig, bool) {
	c.operatorMu.RLock()
	defer c.operatorMu.RUnlock()
	return c.operator, c.operator != nil
}

// SetOperator installs the operator used to derive generated transaction ids.
func (c *Client) SetOperator(op *OperatorConfig) {
	c.operatorMu.Lock()
	defer c.operatorMu.Unlock()
	c.operator = op
}

// LedgerId returns the ledger id bytes last observed from the network, if any.
func (c *Client) LedgerId() ([]byte, bool) {
	c.ledgerIdMu.RLock()
	defer c.ledgerIdMu.RUnlock()
	if c.ledgerId == nil {
		return nil, false
	}
	out := make([]byte, len(c.ledgerId))
	copy(out, c.ledgerId)
	return out, true
}

// SetLedgerId records the ledger id observed from the network.
func (c *Client) SetLedgerId(id []byte) {
	c.ledgerIdMu.Lock()
	defer c.ledgerIdMu.Unlock()
	c.ledgerId = append([]byte(nil), id...)
}

func (c *Client) AutoValidateChecksums() bool          { return c.autoValidateChecksums.Load() }
func (c *Client) SetAutoValidateChecksums(v bool)       { c.autoValidateChecksums.Store(v) }
func (c *Client) DefaultRegenerate() bool               { return c.defaultRegenerate.Load() }
func (c *Client) SetDefaultRegenerate(v bool)           { c.defaultRegenerate.Store(v) }
func (c *Client) MaxAttempts() int                      { return int(c.maxAttempts.Load()) }
func (c *Client) SetMaxAttempts(n int)                  { c.maxAttempts.Store(int64(n)) }
func (c *Client) InitialBackoff() time.Duration         { return time.Duration(c.initialBackoffNanos.Load()) }
func (c *Client) SetInitialBackoff(d time.Duration)     { c.initialBackoffNanos.Store(int64(d)) }
func (c *Client) MaxBackoff() time.Duration             { return time.Duration(c.maxBackoffNanos.Load()) }
func (c *Client) SetMaxBackoff(d time.Duration)         { c.maxBackoffNanos.Store(int64(d)) }
func (c *Client) RequestTimeout() time.Duration         { return time.Duration(c.requestTimeoutNanos.Load()) }
func (c *Client) SetRequestTimeout(d time.Duration)     { c.requestTimeoutNanos.Store(int64(d)) }
func (c *Client) Shard() uint64                         { return c.shard }
func (c *Client) Realm() uint64                         { return c.realm }
func (c *Client) Loop() *ExecutionLoop                  { return c.loop }
func (c *Client) Log() *logrus.Entry                    { return c.log }

// UpdateConsensus installs a new consensus snapshot computed from the
// current one, for callers outside the refresher (e.g. manual address map
// reconfiguration).
func (c *Client) UpdateConsensus(f func(prev *ConsensusNetwork) (*ConsensusNetwork, error)) error {
	_, err := c.consensus.Update(f)
	return err
}

// StartAddressBookRefresher starts (or restarts, on a changed period) the
// background refresher.
func (c *Client) StartAddressBookRefresher(period time.Duration, plaintextOnly bool) {
	if c.refresher != nil {
		c.refresher.Stop()
	}
	c.refresher = newAddressBookRefresher(c, period, plaintextOnly)
	c.refresher.Start()
}

// StopAddressBookRefresher cancels the background refresher, if running.
func (c *Client) StopAddressBookRefresher() {
	if c.refresher != nil {
		c.refresher.Stop()
		c.refresher = nil
	}
}

// Close releases every channel held by the current consensus and mirror
// snapshots and stops the refresher.
func (c *Client) Close() error {
	c.StopAddressBookRefresher()
	var firstErr error
	if cn := c.consensus.Load(); cn != nil {
		for _, conn := range cn.connections {
			if conn == nil {
				continue
			}
			if err := conn.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if mn := c.mirror.Load(); mn != nil {
		if err := mn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
