package core

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeId is the opaque, ordered account identifier the core uses as the
// stable key for a consensus node across address-book updates. It carries no
// behavior beyond equality and ordering — checksum validation and
// solidity-address conversion are external collaborators.
type NodeId struct {
	Shard uint64
	Realm uint64
	Num   uint64
}

// String renders the canonical "shard.realm.num" form.
func (n NodeId) String() string {
	return fmt.Sprintf("%d.%d.%d", n.Shard, n.Realm, n.Num)
}

// ParseNodeId parses the canonical "shard.realm.num" form produced by the
// address-book and by the JSON configuration document.
func ParseNodeId(s string) (NodeId, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return NodeId{}, fmt.Errorf("%w: node id %q must have form shard.realm.num", ErrBadConfig, s)
	}
	vals := make([]uint64, 3)
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return NodeId{}, fmt.Errorf("%w: node id %q: %v", ErrBadConfig, s, err)
		}
		vals[i] = v
	}
	return NodeId{Shard: vals[0], Realm: vals[1], Num: vals[2]}, nil
}

// AccountId is the same shard.realm.num triple used to key operator and
// transfer accounts; kept as a distinct type so a NodeId is never passed
// where an operator account is expected by mistake.
type AccountId struct {
	Shard uint64
	Realm uint64
	Num   uint64
}

func (a AccountId) String() string {
	return fmt.Sprintf("%d.%d.%d", a.Shard, a.Realm, a.Num)
}

func ParseAccountId(s string) (AccountId, error) {
	id, err := ParseNodeId(s)
	if err != nil {
		return AccountId{}, err
	}
	return AccountId{Shard: id.Shard, Realm: id.Realm, Num: id.Num}, nil
}

// TxId identifies a transaction: the paying/operator account plus a valid
// start timestamp. Regeneration produces a new TxId with a strictly
// later ValidStart for the same account.
type TxId struct {
	AccountId  AccountId
	ValidStart ValidStart
}

// ValidStart is a transaction's valid-start timestamp, seconds + nanos, the
// same shape used by the wire protocol's Timestamp message.
type ValidStart struct {
	Seconds int64
	Nanos   int32
}

func (v ValidStart) After(other ValidStart) bool {
	if v.Seconds != other.Seconds {
		return v.Seconds > other.Seconds
	}
	return v.Nanos > other.Nanos
}

func (t TxId) String() string {
	return fmt.Sprintf("%s@%d.%d", t.AccountId, t.ValidStart.Seconds, t.ValidStart.Nanos)
}
