package core

import "sort"

// NodeConnection bundles the set of endpoints known for one logical node
// with the ChannelBalancer built over them. A new NodeConnection is
// created only when a node's address set changes; an unchanged address set
// reuses the previous connection (and its live channels) byte-for-byte.
type NodeConnection struct {
	Endpoints []HostAndPort
	Balancer  *ChannelBalancer
}

// NewNodeConnection builds a balancer over the given endpoint set. The
// endpoints are deduplicated and sorted so endpointSetKey below is stable.
func NewNodeConnection(endpoints []HostAndPort) (*NodeConnection, error) {
	deduped := dedupeEndpoints(endpoints)
	bal, err := NewChannelBalancer(deduped)
	if err != nil {
		return nil, err
	}
	return &NodeConnection{Endpoints: deduped, Balancer: bal}, nil
}

func dedupeEndpoints(endpoints []HostAndPort) []HostAndPort {
	seen := make(map[HostAndPort]struct{}, len(endpoints))
	out := make([]HostAndPort, 0, len(endpoints))
	for _, ep := range endpoints {
		if _, ok := seen[ep]; ok {
			continue
		}
		seen[ep] = struct{}{}
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Host != out[j].Host {
			return out[i].Host < out[j].Host
		}
		return out[i].Port < out[j].Port
	})
	return out
}

// endpointSetKey returns a comparable key for an endpoint set so two
// connections can be compared for equivalence under symmetric difference.
// The set is deduplicated and sorted on every call.
func endpointSetKey(endpoints []HostAndPort) string {
	deduped := dedupeEndpoints(endpoints)
	key := make([]byte, 0, len(deduped)*8)
	for _, ep := range deduped {
		key = append(key, ep.String()...)
		key = append(key, ';')
	}
	return string(key)
}

// equivalentEndpoints reports whether two endpoint sets are equal under
// symmetric difference — the equivalence that drives connection reuse.
func equivalentEndpoints(a, b []HostAndPort) bool {
	return endpointSetKey(a) == endpointSetKey(b)
}

// Close tears down the underlying channel pool.
func (nc *NodeConnection) Close() error {
	if nc.Balancer == nil {
		return nil
	}
	return nc.Balancer.Close()
}
