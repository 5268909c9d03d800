package eventbus

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"tunebridge-go/core/channel"
	"tunebridge-go/core/event"
)

// subscription represents a single event subscription.
type subscription struct {
	id       SubscriptionID
	listener event.Listener
	channel  channel.Channel // Empty means every channel
}

// delivery is one queued unit of work for the dispatch loop.
type delivery struct {
	event *event.Event
	subs  []*subscription
	done  chan struct{} // Set for flush markers
}

// queueEventBus delivers events from an unbounded FIFO on a single goroutine,
// which keeps subscription order without ever blocking a publisher.
type queueEventBus struct {
	logger *slog.Logger

	subsMu        sync.RWMutex
	subscriptions []*subscription

	queueMu sync.Mutex
	queue   []delivery
	signal  chan struct{}

	closed atomic.Bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

// New creates a new EventBus. Listener panics are logged to logger.
func New(logger *slog.Logger) EventBus {
	if logger == nil {
		logger = slog.Default()
	}

	bus := &queueEventBus{
		logger: logger,
		signal: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}

	bus.wg.Add(1)
	go bus.dispatch()

	return bus
}

// Publish snapshots the matching subscribers and queues the event.
func (b *queueEventBus) Publish(e *event.Event) bool {
	if b.closed.Load() {
		return false
	}

	b.subsMu.RLock()
	subs := make([]*subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		if sub.channel == "" || sub.channel == e.Channel {
			subs = append(subs, sub)
		}
	}
	b.subsMu.RUnlock()

	b.enqueue(delivery{event: e, subs: subs})
	return true
}

// Subscribe subscribes to events of a single channel.
func (b *queueEventBus) Subscribe(ch channel.Channel, listener event.Listener) SubscriptionID {
	return b.subscribe(ch, listener)
}

// SubscribeAll subscribes to all events.
func (b *queueEventBus) SubscribeAll(listener event.Listener) SubscriptionID {
	return b.subscribe("", listener)
}

func (b *queueEventBus) subscribe(ch channel.Channel, listener event.Listener) SubscriptionID {
	id := SubscriptionID(uuid.NewString())

	b.subsMu.Lock()
	b.subscriptions = append(b.subscriptions, &subscription{
		id:       id,
		listener: listener,
		channel:  ch,
	})
	b.subsMu.Unlock()

	return id
}

// Unsubscribe removes a subscription by its ID.
func (b *queueEventBus) Unsubscribe(id SubscriptionID) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	for i, sub := range b.subscriptions {
		if sub.id == id {
			// Copy so snapshots taken by Publish stay intact.
			next := make([]*subscription, 0, len(b.subscriptions)-1)
			next = append(next, b.subscriptions[:i]...)
			next = append(next, b.subscriptions[i+1:]...)
			b.subscriptions = next
			return
		}
	}
}

// Flush waits for the queue to drain up to this point.
func (b *queueEventBus) Flush() {
	if b.closed.Load() {
		return
	}
	done := make(chan struct{})
	b.enqueue(delivery{done: done})

	select {
	case <-done:
	case <-b.stop:
	}
}

// Close shuts down the event bus.
func (b *queueEventBus) Close() {
	if b.closed.Swap(true) {
		return // Already closed
	}

	close(b.stop)
	b.wg.Wait()
}

func (b *queueEventBus) enqueue(d delivery) {
	b.queueMu.Lock()
	b.queue = append(b.queue, d)
	b.queueMu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// dispatch is the main event dispatch loop.
func (b *queueEventBus) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case <-b.signal:
			b.drain()
		case <-b.stop:
			b.drain()
			return
		}
	}
}

func (b *queueEventBus) drain() {
	for {
		b.queueMu.Lock()
		if len(b.queue) == 0 {
			b.queueMu.Unlock()
			return
		}
		batch := b.queue
		b.queue = nil
		b.queueMu.Unlock()

		for _, d := range batch {
			if d.done != nil {
				close(d.done)
				continue
			}
			b.deliverEvent(d)
		}
	}
}

// deliverEvent calls each snapshotted listener in subscription order.
func (b *queueEventBus) deliverEvent(d delivery) {
	for _, sub := range d.subs {
		b.invoke(sub, d.event)
	}
}

func (b *queueEventBus) invoke(sub *subscription, e *event.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event listener panicked",
				"channel", e.EventName(),
				"subscription", sub.id,
				"panic", r,
			)
		}
	}()
	sub.listener(e)
}
