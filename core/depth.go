package core

import (
	"context"
	"fmt"
)

// DefaultMaxCallDepth bounds nested agent calls within one request.
const DefaultMaxCallDepth = 16

type callDepthKey struct{}

// CallDepth returns the number of agent calls already on the stack of ctx.
func CallDepth(ctx context.Context) int {
	if d, ok := ctx.Value(callDepthKey{}).(int); ok {
		return d
	}
	return 0
}

// WithCallDepth returns a context carrying the given call depth.
func WithCallDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, callDepthKey{}, depth)
}

// EnterCall increments the call depth of ctx. It fails with
// ErrCallDepthExceeded when the new depth would exceed max. A max of zero
// disables the check.
func EnterCall(ctx context.Context, max int) (context.Context, error) {
	depth := CallDepth(ctx) + 1
	if max > 0 && depth > max {
		return ctx, fmt.Errorf("%w: depth %d exceeds %d", ErrCallDepthExceeded, depth, max)
	}
	return WithCallDepth(ctx, depth), nil
}
