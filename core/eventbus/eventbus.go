// Package eventbus provides the event bus for publishing and subscribing to events.
package eventbus

import (
	"tunebridge-go/core/channel"
	"tunebridge-go/core/event"
)

// SubscriptionID identifies a subscription for later removal.
type SubscriptionID string

// EventBus is the interface for the event bus.
type EventBus interface {
	// Publish queues an event for delivery and returns immediately.
	// The set of receivers is fixed at the moment Publish is called: listeners
	// subscribed afterwards do not receive this event. Returns false once closed.
	Publish(e *event.Event) bool

	// Subscribe registers a listener for one channel.
	Subscribe(ch channel.Channel, listener event.Listener) SubscriptionID

	// SubscribeAll registers a listener for every channel.
	SubscribeAll(listener event.Listener) SubscriptionID

	// Unsubscribe removes a subscription by its ID. Unknown IDs are ignored.
	Unsubscribe(id SubscriptionID)

	// Flush blocks until every event published before the call has been delivered.
	// It must not be called from a listener.
	Flush()

	// Close delivers the events already queued, then shuts the bus down.
	// After Close is called, Publish will be a no-op.
	Close()
}
