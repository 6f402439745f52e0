package core

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// grpcMetadataWithUserAgent stamps the custom x-user-agent header onto
// an outgoing call, merging with any metadata already present on ctx.
func grpcMetadataWithUserAgent(ctx context.Context, userAgent string) context.Context {
	md, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.MD{}
	}
	md.Set("x-user-agent", userAgent)
	return metadata.NewOutgoingContext(ctx, md)
}
