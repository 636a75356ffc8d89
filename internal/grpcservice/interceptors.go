package grpcservice

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"runtime/debug"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServerOptions returns the options every recall gRPC server is built with.
// A panicking handler fails its own call with codes.Internal and leaves the
// server running.
func ServerOptions() []grpc.ServerOption {
	rec := recovery.WithRecoveryHandlerContext(recoverPanic)
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(recovery.UnaryServerInterceptor(rec)),
		grpc.ChainStreamInterceptor(recovery.StreamServerInterceptor(rec)),
	}
}

func recoverPanic(ctx context.Context, p any) error {
	slog.Error("grpc handler panicked", "panic", p, "source", sourceFromCtx(ctx), "stack", string(debug.Stack()))
	return status.Error(codes.Internal, "internal error")
}

// tokenMatches compares in constant time for equal-length inputs.
func tokenMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
