package core

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// SDK identity sent on every call as the x-user-agent header.
const (
	sdkName    = "hiero-sdk-go-core"
	sdkVersion = "0.1.0"
)

// ChannelBalancer is a non-empty pool of live gRPC channels sharing one
// logical target. Channels are created once at construction and never added;
// selection per call is uniformly random rather than round-robin or
// power-of-two-choices, because the gRPC layer exposes no reliable
// per-channel in-flight metric — random selection avoids synchronized retry
// storms without needing concurrent metric maintenance.
type ChannelBalancer struct {
	channels []*grpc.ClientConn
}

// NewChannelBalancer creates one channel per endpoint. Construction failure
// is fatal: the caller's configuration is unusable. grpc.NewClient connects
// lazily, so construction fails only for an empty endpoint set or a target
// the gRPC client rejects; an unreachable endpoint surfaces on the first call.
func NewChannelBalancer(endpoints []HostAndPort) (*ChannelBalancer, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w: channel balancer requires at least one endpoint", ErrBadConfig)
	}
	channels := make([]*grpc.ClientConn, 0, len(endpoints))
	for _, ep := range endpoints {
		conn, err := dialEndpoint(ep)
		if err != nil {
			for _, c := range channels {
				_ = c.Close()
			}
			return nil, fmt.Errorf("%w: dial %s: %v", ErrBadConfig, ep, err)
		}
		channels = append(channels, conn)
	}
	return &ChannelBalancer{channels: channels}, nil
}

func dialEndpoint(ep HostAndPort) (*grpc.ClientConn, error) {
	var creds credentials.TransportCredentials
	if ep.IsTLS() {
		creds = credentials.NewTLS(&tls.Config{ServerName: ep.Host, NextProtos: []string{"h2"}})
	} else {
		creds = insecure.NewCredentials()
	}
	return grpc.NewClient(ep.String(), grpc.WithTransportCredentials(creds))
}

// Invoke picks one channel uniformly at random and forwards the unary call.
func (b *ChannelBalancer) Invoke(ctx context.Context, method string, req, resp interface{}) error {
	conn := b.pick()
	ctx = withUserAgent(ctx)
	return conn.Invoke(ctx, method, req, resp)
}

// Conn returns one channel uniformly at random, for request types that need
// to drive the call themselves (a generated gRPC client stub's method set).
func (b *ChannelBalancer) Conn() *grpc.ClientConn {
	return b.pick()
}

func (b *ChannelBalancer) pick() *grpc.ClientConn {
	return b.channels[rand.Intn(len(b.channels))]
}

// Close closes all channels. Concurrent invocations after Close are
// undefined.
func (b *ChannelBalancer) Close() error {
	var first error
	for _, c := range b.channels {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func withUserAgent(ctx context.Context) context.Context {
	return grpcMetadataWithUserAgent(ctx, sdkName+"/"+sdkVersion)
}
