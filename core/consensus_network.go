package core

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// AddressBookEntry is one announced node record from the mirror network's
// address-book query. ServiceEndpoints need not be sorted by the caller;
// FromAddressBook applies the TLS-first port priority.
type AddressBookEntry struct {
	NodeId           NodeId
	ServiceEndpoints []HostAndPort
}

// ConsensusNetwork is the immutable snapshot of consensus nodes: parallel
// nodes/health/connections arrays plus an indexOf bijection. It is produced
// by a builder that reuses the predecessor's connections and health cells
// wherever a node's endpoint set is unchanged, and installed via a single
// CAS into the client's AtomicSnapshot.
type ConsensusNetwork struct {
	nodes       []NodeId
	indexOf     map[NodeId]int
	health      []*NodeHealth
	connections []*NodeConnection
}

// NewEmptyConsensusNetwork returns the zero-node snapshot: permitted,
// yields no candidates, and drives the execution loop to NoHealthyNodesError.
func NewEmptyConsensusNetwork() *ConsensusNetwork {
	return &ConsensusNetwork{indexOf: map[NodeId]int{}}
}

// Nodes returns the ordered node id sequence.
func (n *ConsensusNetwork) Nodes() []NodeId {
	out := make([]NodeId, len(n.nodes))
	copy(out, n.nodes)
	return out
}

// Len returns the number of nodes in the snapshot.
func (n *ConsensusNetwork) Len() int { return len(n.nodes) }

// Addresses returns the inverted endpointString -> NodeId map. Duplicate
// endpoints across nodes keep the first node encountered in nodes order.
func (n *ConsensusNetwork) Addresses() map[string]NodeId {
	out := make(map[string]NodeId)
	for i, id := range n.nodes {
		conn := n.connections[i]
		if conn == nil {
			continue
		}
		for _, ep := range conn.Endpoints {
			key := ep.String()
			if _, exists := out[key]; !exists {
				out[key] = id
			}
		}
	}
	return out
}

// Channel returns the channel balancer for node index i, or nil if that
// node currently has no usable endpoint.
func (n *ConsensusNetwork) Channel(i int) *ChannelBalancer {
	conn := n.connections[i]
	if conn == nil {
		return nil
	}
	return conn.Balancer
}

// Indices resolves a set of explicit node ids to their snapshot positions,
// erroring if any is unknown.
func (n *ConsensusNetwork) Indices(ids []NodeId) ([]int, error) {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		idx, ok := n.indexOf[id]
		if !ok {
			return nil, &UnknownNodeError{Id: id}
		}
		out = append(out, idx)
	}
	return out, nil
}

// HealthyIndices returns every index whose node both has a usable
// connection and reports healthy at now.
func (n *ConsensusNetwork) HealthyIndices(at time.Time) []int {
	out := make([]int, 0, len(n.nodes))
	for i := range n.nodes {
		if n.connections[i] == nil {
			continue
		}
		if n.health[i].IsHealthy(at) {
			out = append(out, i)
		}
	}
	return out
}

func (n *ConsensusNetwork) MarkHealthy(i int)                       { n.health[i].MarkHealthy(now()) }
func (n *ConsensusNetwork) MarkUnhealthy(i int)                     { n.health[i].MarkUnhealthy(now()) }
func (n *ConsensusNetwork) IsHealthy(i int, at time.Time) bool      { return n.health[i].IsHealthy(at) }
func (n *ConsensusNetwork) RecentlyPinged(i int, at time.Time) bool { return n.health[i].RecentlyPinged(at) }
func (n *ConsensusNetwork) NodeIdAt(i int) NodeId                   { return n.nodes[i] }

// FromAddressMap builds a successor snapshot from a raw endpoint-string ->
// NodeId map, the shape of the JSON configuration document's network field.
// Endpoints are grouped by node id; a node whose resulting endpoint set is
// unchanged from prev reuses its NodeConnection and NodeHealth cell by
// identity.
func FromAddressMap(prev *ConsensusNetwork, addrMap map[string]NodeId, log *zap.SugaredLogger) (*ConsensusNetwork, error) {
	grouped := make(map[NodeId][]HostAndPort)
	order := make([]NodeId, 0)
	for addrStr, id := range addrMap {
		ep, err := ParseHostAndPort(addrStr)
		if err != nil {
			return nil, err
		}
		if _, seen := grouped[id]; !seen {
			order = append(order, id)
		}
		grouped[id] = append(grouped[id], ep)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].String() < order[j].String() })

	return buildSnapshot(prev, order, grouped, log)
}

// FromAddressBook builds a successor snapshot from the mirror network's
// parsed address book. Per entry, service endpoints are sorted
// TLS-first/plaintext-next/other-last and the first endpoint with a
// non-empty host is kept; an entry with no usable endpoint yields an empty
// set for that node. The resulting nodes order follows book iteration
// order, an intentional, externally visible tie-break.
func FromAddressBook(prev *ConsensusNetwork, book []AddressBookEntry, log *zap.SugaredLogger) (*ConsensusNetwork, error) {
	order := make([]NodeId, 0, len(book))
	grouped := make(map[NodeId][]HostAndPort, len(book))
	for _, entry := range book {
		order = append(order, entry.NodeId)
		ep, ok := pickBestEndpoint(entry.ServiceEndpoints)
		if ok {
			grouped[entry.NodeId] = []HostAndPort{ep}
		} else {
			grouped[entry.NodeId] = nil
		}
	}
	return buildSnapshot(prev, order, grouped, log)
}

func pickBestEndpoint(endpoints []HostAndPort) (HostAndPort, bool) {
	candidates := make([]HostAndPort, 0, len(endpoints))
	for _, ep := range endpoints {
		if ep.Host != "" {
			candidates = append(candidates, ep)
		}
	}
	if len(candidates) == 0 {
		return HostAndPort{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return portPriority(candidates[i].Port) < portPriority(candidates[j].Port)
	})
	return candidates[0], true
}

// buildSnapshot applies the shared reuse rule: carry forward the previous
// connection for a node whose endpoint set is unchanged (symmetric
// difference empty), otherwise build a fresh one; carry forward the previous
// health cell for every node prev knew, and create a fresh one otherwise.
func buildSnapshot(prev *ConsensusNetwork, order []NodeId, endpoints map[NodeId][]HostAndPort, log *zap.SugaredLogger) (*ConsensusNetwork, error) {
	n := &ConsensusNetwork{
		nodes:       make([]NodeId, 0, len(order)),
		indexOf:     make(map[NodeId]int, len(order)),
		health:      make([]*NodeHealth, 0, len(order)),
		connections: make([]*NodeConnection, 0, len(order)),
	}

	for _, id := range order {
		eps := endpoints[id]
		var conn *NodeConnection
		var health *NodeHealth

		prevIdx, hadPrev := -1, false
		if prev != nil {
			if idx, ok := prev.indexOf[id]; ok {
				prevIdx, hadPrev = idx, true
			}
		}

		if hadPrev && prev.connections[prevIdx] != nil && len(eps) > 0 &&
			equivalentEndpoints(prev.connections[prevIdx].Endpoints, eps) {
			conn = prev.connections[prevIdx]
		} else if len(eps) > 0 {
			built, err := NewNodeConnection(eps)
			if err != nil {
				return nil, err
			}
			conn = built
		}

		if hadPrev {
			health = prev.health[prevIdx]
		} else {
			health = NewNodeHealth(log)
		}

		n.indexOf[id] = len(n.nodes)
		n.nodes = append(n.nodes, id)
		n.connections = append(n.connections, conn)
		n.health = append(n.health, health)
	}

	return n, nil
}
