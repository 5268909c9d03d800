// Package command defines the values exchanged over request channels:
// requests, their arguments, and the responses handlers produce.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tunebridge-go/core/channel"
)

var (
	// ErrMissingArg is returned by Args.Decode for an out-of-range index.
	ErrMissingArg = errors.New("missing argument")
	// ErrBadArg is returned by Args.Decode when an argument does not fit the target.
	ErrBadArg = errors.New("malformed argument")
)

// Args is the ordered argument list of a request. Each element is an opaque JSON
// value so in-process and cross-process calls share one representation.
type Args []json.RawMessage

// NewArgs encodes values into an argument list.
func NewArgs(values ...any) (Args, error) {
	args := make(Args, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode argument %d: %w", i, err)
		}
		args[i] = data
	}
	return args, nil
}

// Len returns the number of arguments.
func (a Args) Len() int {
	return len(a)
}

// Decode unmarshals argument i into v.
func (a Args) Decode(i int, v any) error {
	if i < 0 || i >= len(a) {
		return fmt.Errorf("%w: index %d of %d", ErrMissingArg, i, len(a))
	}
	if err := json.Unmarshal(a[i], v); err != nil {
		return fmt.Errorf("%w: index %d: %v", ErrBadArg, i, err)
	}
	return nil
}

// Request is a call on a request channel.
type Request struct {
	Channel channel.Channel
	Args    Args
}

// NewRequest creates a request for ch.
func NewRequest(ch channel.Channel, args Args) *Request {
	return &Request{Channel: ch, Args: args}
}

// CommandName returns the name of the command for logging/debugging.
func (r *Request) CommandName() string {
	return string(r.Channel)
}

// Handler produces a result for a request. A returned error becomes a
// HandlerFailure response; it never propagates to the caller as a panic.
type Handler func(ctx context.Context, req *Request) (any, error)
