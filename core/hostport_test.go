package core

import "testing"

func TestParseHostAndPort(t *testing.T) {
	cases := []struct {
		in      string
		want    HostAndPort
		wantErr bool
	}{
		{"example.com:50211", HostAndPort{"example.com", 50211}, false},
		{"example.com", HostAndPort{"example.com", MirrorTLSPort}, false},
		{"example.com:notaport", HostAndPort{}, true},
		{"127.0.0.1:443", HostAndPort{"127.0.0.1", 443}, false},
	}
	for _, tc := range cases {
		got, err := ParseHostAndPort(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error, got none", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: got %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestHostAndPortString(t *testing.T) {
	hp := HostAndPort{Host: "node.example.com", Port: 50212}
	if got, want := hp.String(), "node.example.com:50212"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestHostAndPortIsTLS(t *testing.T) {
	cases := []struct {
		port uint16
		tls  bool
	}{
		{ConsensusTLSPort, true},
		{MirrorTLSPort, true},
		{ConsensusPlaintextPort, false},
		{MirrorPlaintextPort, false},
		{9999, false},
	}
	for _, tc := range cases {
		hp := HostAndPort{Host: "x", Port: tc.port}
		if got := hp.IsTLS(); got != tc.tls {
			t.Errorf("port %d: got IsTLS()=%v, want %v", tc.port, got, tc.tls)
		}
	}
}

func TestPortPriorityOrdering(t *testing.T) {
	if portPriority(ConsensusTLSPort) >= portPriority(ConsensusPlaintextPort) {
		t.Fatalf("TLS port must sort before plaintext port")
	}
	if portPriority(ConsensusPlaintextPort) >= portPriority(9999) {
		t.Fatalf("plaintext port must sort before an arbitrary port")
	}
}
