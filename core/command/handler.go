package command

import "context"

// NoArgs adapts a function that ignores request arguments.
func NoArgs(fn func(ctx context.Context) (any, error)) Handler {
	return func(ctx context.Context, _ *Request) (any, error) {
		return fn(ctx)
	}
}

// Unary adapts a function taking the request's first argument decoded as T.
func Unary[T any](fn func(ctx context.Context, arg T) (any, error)) Handler {
	return func(ctx context.Context, req *Request) (any, error) {
		var arg T
		if err := req.Args.Decode(0, &arg); err != nil {
			return nil, err
		}
		return fn(ctx, arg)
	}
}

// Binary adapts a function taking the request's first two arguments.
func Binary[A, B any](fn func(ctx context.Context, a A, b B) (any, error)) Handler {
	return func(ctx context.Context, req *Request) (any, error) {
		var a A
		var b B
		if err := req.Args.Decode(0, &a); err != nil {
			return nil, err
		}
		if err := req.Args.Decode(1, &b); err != nil {
			return nil, err
		}
		return fn(ctx, a, b)
	}
}
