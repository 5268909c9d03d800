// Package event defines the values broadcast over event channels.
// Events are published by the backend and consumed by UI-side listeners.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"tunebridge-go/core/channel"
)

// Event is a payload published on an event channel. It carries no correlation
// to any request.
type Event struct {
	Channel channel.Channel
	Payload any
	At      time.Time
}

// New creates an event stamped with the current time.
func New(ch channel.Channel, payload any) *Event {
	return &Event{Channel: ch, Payload: payload, At: time.Now()}
}

// EventName returns the name of the event for logging/debugging.
func (e *Event) EventName() string {
	return string(e.Channel)
}

// Decode unmarshals the payload into v. Payloads received from another process
// are json.RawMessage; local payloads are re-encoded first.
func (e *Event) Decode(v any) error {
	raw, ok := e.Payload.(json.RawMessage)
	if !ok {
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
		raw = data
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

// Listener receives events from a subscribed channel.
type Listener func(e *Event)

// StateChanged is the payload of player:stateChanged.
type StateChanged struct {
	Playing  bool    `json:"playing"`
	TrackID  string  `json:"trackId,omitempty"`
	Position float64 `json:"position,omitempty"`
}

// SettingChanged is the payload of settings:changed.
type SettingChanged struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value,omitempty"`
	Reset bool            `json:"reset,omitempty"`
}
