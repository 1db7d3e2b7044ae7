package outbound

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"auditrelay/pkg/correlation"
)

// UnaryClientInterceptor propagates configured business keys onto outgoing
// RPC metadata, mirroring the HTTP header injection. Header names follow the
// same deterministic mapping; gRPC lowercases metadata keys on the wire,
// which the receiving side's case-insensitive lookup absorbs.
func UnaryClientInterceptor(keys []string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any,
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		snapshot := correlation.Snapshot(ctx)
		var pairs []string
		for _, key := range keys {
			if v := snapshot[key]; strings.TrimSpace(v) != "" {
				pairs = append(pairs, correlation.HeaderName(key), v)
			}
		}
		if len(pairs) > 0 {
			ctx = metadata.AppendToOutgoingContext(ctx, pairs...)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
