package core

// MirrorNetwork is the immutable snapshot of mirror-node endpoints used for
// address-book queries. Unlike ConsensusNetwork it carries no
// per-node health tracking: mirror queries are not retried per-node by the
// execution loop; a failed refresher query is repeated on its next period.
type MirrorNetwork struct {
	endpoints []HostAndPort
	balancer  *ChannelBalancer
}

// NewMirrorNetwork creates a channel for every endpoint at construction, as
// ConsensusNetwork does; the gRPC client connects lazily on the first call.
func NewMirrorNetwork(endpoints []HostAndPort) (*MirrorNetwork, error) {
	deduped := dedupeEndpoints(endpoints)
	if len(deduped) == 0 {
		return &MirrorNetwork{}, nil
	}
	balancer, err := NewChannelBalancer(deduped)
	if err != nil {
		return nil, err
	}
	return &MirrorNetwork{endpoints: deduped, balancer: balancer}, nil
}

// Endpoints returns the deduped, sorted endpoint set.
func (m *MirrorNetwork) Endpoints() []HostAndPort {
	out := make([]HostAndPort, len(m.endpoints))
	copy(out, m.endpoints)
	return out
}

// Channel returns the balancer for issuing address-book queries, or nil if
// the network has no endpoints configured.
func (m *MirrorNetwork) Channel() *ChannelBalancer { return m.balancer }

// Close releases the underlying gRPC channels.
func (m *MirrorNetwork) Close() error {
	if m.balancer == nil {
		return nil
	}
	return m.balancer.Close()
}

// Well-known mirror network presets.
var (
	mainnetMirrorHosts    = []string{"mainnet-public.mirrornode.hedera.com:443"}
	testnetMirrorHosts    = []string{"testnet.mirrornode.hedera.com:443"}
	previewnetMirrorHosts = []string{"previewnet.mirrornode.hedera.com:443"}
	localhostMirrorHosts  = []string{"127.0.0.1:5600"}
)

func mustParseHosts(hosts []string) []HostAndPort {
	out := make([]HostAndPort, 0, len(hosts))
	for _, h := range hosts {
		ep, err := ParseHostAndPort(h)
		if err != nil {
			// Preset host strings are compiled in and controlled by us, not
			// caller configuration; a parse failure here is a programming
			// error, not a runtime one.
			panic(err)
		}
		out = append(out, ep)
	}
	return out
}

// MainnetMirrorNetwork, TestnetMirrorNetwork, PreviewnetMirrorNetwork, and
// LocalhostMirrorNetwork build the mirror-side half of each named preset.
// The matching consensus-side preset lives in presets.go.
func MainnetMirrorNetwork() (*MirrorNetwork, error) {
	return NewMirrorNetwork(mustParseHosts(mainnetMirrorHosts))
}

func TestnetMirrorNetwork() (*MirrorNetwork, error) {
	return NewMirrorNetwork(mustParseHosts(testnetMirrorHosts))
}

func PreviewnetMirrorNetwork() (*MirrorNetwork, error) {
	return NewMirrorNetwork(mustParseHosts(previewnetMirrorHosts))
}

func LocalhostMirrorNetwork() (*MirrorNetwork, error) {
	return NewMirrorNetwork(mustParseHosts(localhostMirrorHosts))
}

// MirrorNetworkForPreset resolves a named preset's mirror half for the
// configuration document.
func MirrorNetworkForPreset(name string) (*MirrorNetwork, error) {
	return presetMirrorNetwork(name)
}

// MirrorNetworkFromAddresses builds a mirror network from explicit
// "host:port" strings, forcing plaintext on every endpoint when *all* of
// them resolve to a local address — the localhost-factory behavior
// generalized to arbitrary caller-supplied targets rather than only the
// literal localhost preset.
func MirrorNetworkFromAddresses(addrs []string) (*MirrorNetwork, error) {
	endpoints := make([]HostAndPort, 0, len(addrs))
	for _, a := range addrs {
		ep, err := ParseHostAndPort(a)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	if allLocal(endpoints) {
		for i := range endpoints {
			endpoints[i] = forcePlaintextPort(endpoints[i])
		}
	}
	return NewMirrorNetwork(endpoints)
}

func allLocal(endpoints []HostAndPort) bool {
	if len(endpoints) == 0 {
		return false
	}
	for _, ep := range endpoints {
		if !isLocalHost(ep.Host) {
			return false
		}
	}
	return true
}

func isLocalHost(host string) bool {
	switch host {
	case "127.0.0.1", "localhost", "::1":
		return true
	default:
		return false
	}
}

// forcePlaintextPort remaps a local endpoint's well-known TLS port to its
// plaintext counterpart, leaving non-well-known ports untouched.
func forcePlaintextPort(ep HostAndPort) HostAndPort {
	switch ep.Port {
	case MirrorTLSPort:
		return HostAndPort{Host: ep.Host, Port: MirrorPlaintextPort}
	case ConsensusTLSPort:
		return HostAndPort{Host: ep.Host, Port: ConsensusPlaintextPort}
	default:
		return ep
	}
}
