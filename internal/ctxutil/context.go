// Package ctxutil carries cross-RPC bookkeeping (lookup hop count) and
// translates context cancellation into gRPC status errors, the way a
// handler checks its context before doing real work.
package ctxutil

import (
	"context"
	"errors"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const hopsKey = "x-chord-hops"

// WithHops attaches a hop count to an outgoing RPC context, propagated to
// the callee via gRPC metadata so a recursive FindSuccessor chain can
// enforce the M-hop cap across nodes, not just within one process.
func WithHops(ctx context.Context, hops int) context.Context {
	return metadata.AppendToOutgoingContext(ctx, hopsKey, strconv.Itoa(hops))
}

// HopsFromContext reads the hop count carried by an incoming RPC
// context. A context with no hop metadata (a client-originated call) is
// hop zero.
func HopsFromContext(ctx context.Context) int {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0
	}
	vals := md.Get(hopsKey)
	if len(vals) == 0 {
		return 0
	}
	n, err := strconv.Atoi(vals[0])
	if err != nil {
		return 0
	}
	return n
}

// CheckContext verifies whether ctx has been canceled or its deadline
// has expired, and is typically invoked at the start of an RPC handler
// before doing any real work.
func CheckContext(ctx context.Context) error {
	switch err := ctx.Err(); {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled by client")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request deadline exceeded")
	default:
		return nil
	}
}
