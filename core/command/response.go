package command

import (
	"encoding/json"
	"errors"
	"fmt"

	"tunebridge-go/core/channel"
)

var (
	// ErrUnknownChannel matches failures for requests on unbound channels.
	ErrUnknownChannel = channel.ErrUnknownChannel
	// ErrHandlerFailure matches failures raised by a handler.
	ErrHandlerFailure = errors.New("handler failure")
	// ErrTimeout matches failures for requests that got no response in time.
	ErrTimeout = errors.New("timeout")
	// ErrCancelled matches failures for requests the caller stopped waiting on.
	ErrCancelled = errors.New("cancelled")
	// ErrInvalidRequest matches requests rejected before any handler ran, such
	// as arguments that are not valid JSON.
	ErrInvalidRequest = errors.New("invalid request")
)

// Code classifies a failed response.
type Code int

const (
	CodeUnknownChannel Code = iota + 1
	CodeHandlerFailure
	CodeTimeout
	CodeCancelled
	CodeInvalidRequest
)

// String returns the string representation of the code.
func (c Code) String() string {
	switch c {
	case CodeUnknownChannel:
		return "UnknownChannel"
	case CodeHandlerFailure:
		return "HandlerFailure"
	case CodeTimeout:
		return "Timeout"
	case CodeCancelled:
		return "Cancelled"
	case CodeInvalidRequest:
		return "InvalidRequest"
	default:
		return "Unknown"
	}
}

// ParseCode is the inverse of Code.String.
func ParseCode(s string) (Code, error) {
	for c := CodeUnknownChannel; c <= CodeInvalidRequest; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown failure code %q", s)
}

func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Code) UnmarshalText(text []byte) error {
	parsed, err := ParseCode(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Code) sentinel() error {
	switch c {
	case CodeUnknownChannel:
		return ErrUnknownChannel
	case CodeHandlerFailure:
		return ErrHandlerFailure
	case CodeTimeout:
		return ErrTimeout
	case CodeCancelled:
		return ErrCancelled
	case CodeInvalidRequest:
		return ErrInvalidRequest
	default:
		return nil
	}
}

// Failure describes why a request did not produce a result.
type Failure struct {
	Code    Code            `json:"code"`
	Channel channel.Channel `json:"channel,omitempty"`
	Message string          `json:"message"`
}

func (f *Failure) Error() string {
	if f.Channel != "" {
		return fmt.Sprintf("%s on %s: %s", f.Code, f.Channel, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Code.sentinel()
}

// Response is the outcome of exactly one request.
type Response struct {
	Channel channel.Channel
	Result  any
	Failure *Failure
}

// Success builds a successful response.
func Success(ch channel.Channel, result any) *Response {
	return &Response{Channel: ch, Result: result}
}

// Fail builds a failed response.
func Fail(ch channel.Channel, code Code, format string, args ...any) *Response {
	return &Response{
		Channel: ch,
		Failure: &Failure{Code: code, Channel: ch, Message: fmt.Sprintf(format, args...)},
	}
}

// OK reports whether the response carries a result.
func (r *Response) OK() bool {
	return r.Failure == nil
}

// Err returns the failure as an error, or nil for a successful response.
func (r *Response) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// Decode unmarshals the result into v. Results that crossed a process boundary
// arrive as json.RawMessage; in-process results are re-encoded first.
func (r *Response) Decode(v any) error {
	if r.Failure != nil {
		return r.Failure
	}
	raw, ok := r.Result.(json.RawMessage)
	if !ok {
		data, err := json.Marshal(r.Result)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		raw = data
	}
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}
