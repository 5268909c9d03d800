// Package transport carries requests and events across the process boundary
// between the backend and its UI processes as JSON envelopes over WebSocket.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"

	"tunebridge-go/core/channel"
	"tunebridge-go/core/command"
)

// MessageType identifies the purpose of an envelope.
type MessageType string

const (
	// TypeHello opens a connection; the client sends its catalog fingerprint.
	TypeHello MessageType = "hello"
	// TypeWelcome answers a hello with the backend's fingerprint.
	TypeWelcome MessageType = "welcome"
	// TypeInvoke carries a request.
	TypeInvoke MessageType = "invoke"
	// TypeResponse answers an invoke, subscribe or unsubscribe with the same ID.
	TypeResponse MessageType = "response"
	// TypeSubscribe asks the backend to forward an event channel.
	TypeSubscribe MessageType = "subscribe"
	// TypeUnsubscribe stops forwarding an event channel.
	TypeUnsubscribe MessageType = "unsubscribe"
	// TypeEvent carries a published event.
	TypeEvent MessageType = "event"
	// TypeError reports a protocol-level problem not tied to a request.
	TypeError MessageType = "error"
)

// ErrMalformedEnvelope is returned for frames that cannot be decoded or lack required fields.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// ErrCatalogMismatch is returned when both sides disagree on the channel catalog.
var ErrCatalogMismatch = errors.New("channel catalog fingerprint mismatch")

// Envelope is the single frame shape exchanged on the wire.
type Envelope struct {
	Type        MessageType      `json:"type"`
	ID          string           `json:"id,omitempty"`
	Channel     channel.Channel  `json:"channel,omitempty"`
	Args        command.Args     `json:"args,omitempty"`
	Result      json.RawMessage  `json:"result,omitempty"`
	Payload     json.RawMessage  `json:"payload,omitempty"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	Failure     *command.Failure `json:"failure,omitempty"`
	Error       string           `json:"error,omitempty"`
	// At is the publish time of an event in Unix milliseconds.
	At int64 `json:"at,omitempty"`
}

// Encode serializes an envelope after checking its required fields.
func Encode(env *Envelope) ([]byte, error) {
	if err := env.validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// Decode parses and validates a frame.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Envelope) validate() error {
	switch e.Type {
	case TypeHello, TypeWelcome:
		if e.Fingerprint == "" {
			return fmt.Errorf("%w: %s without fingerprint", ErrMalformedEnvelope, e.Type)
		}
	case TypeInvoke, TypeSubscribe, TypeUnsubscribe:
		if e.ID == "" || e.Channel == "" {
			return fmt.Errorf("%w: %s requires id and channel", ErrMalformedEnvelope, e.Type)
		}
	case TypeResponse:
		if e.ID == "" {
			return fmt.Errorf("%w: response without id", ErrMalformedEnvelope)
		}
	case TypeEvent:
		if e.Channel == "" {
			return fmt.Errorf("%w: event without channel", ErrMalformedEnvelope)
		}
	case TypeError:
		if e.Error == "" {
			return fmt.Errorf("%w: error without message", ErrMalformedEnvelope)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedEnvelope, e.Type)
	}
	return nil
}

// responseEnvelope converts a dispatcher response into its wire form.
func responseEnvelope(id string, resp *command.Response) *Envelope {
	env := &Envelope{Type: TypeResponse, ID: id, Channel: resp.Channel}
	if resp.Failure != nil {
		env.Failure = resp.Failure
		return env
	}
	if resp.Result != nil {
		data, err := json.Marshal(resp.Result)
		if err != nil {
			env.Failure = &command.Failure{
				Code:    command.CodeHandlerFailure,
				Channel: resp.Channel,
				Message: fmt.Sprintf("result not encodable: %v", err),
			}
			return env
		}
		env.Result = data
	}
	return env
}

// toResponse converts a response envelope back into a command.Response.
func (e *Envelope) toResponse() *command.Response {
	if e.Failure != nil {
		return &command.Response{Channel: e.Channel, Failure: e.Failure}
	}
	var result any
	if len(e.Result) > 0 {
		result = e.Result
	}
	return command.Success(e.Channel, result)
}
