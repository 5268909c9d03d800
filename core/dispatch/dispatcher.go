// Package dispatch routes requests to their registered handlers and events to
// their listeners, validating every channel against the registry.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tunebridge-go/core/channel"
	"tunebridge-go/core/command"
	"tunebridge-go/core/event"
	"tunebridge-go/core/eventbus"
	"tunebridge-go/core/state"
	"tunebridge-go/infrastructure/logging"
)

var (
	// ErrDuplicateHandler is returned when a channel already has a handler.
	ErrDuplicateHandler = errors.New("duplicate handler")
	// ErrWrongKind is returned when a request operation targets an event channel or vice versa.
	ErrWrongKind = errors.New("wrong channel kind")
	// ErrSealed is returned when registering a handler after Start.
	ErrSealed = errors.New("dispatcher is serving; handler table is frozen")
	// ErrClosed is returned by operations on a closed dispatcher.
	ErrClosed = errors.New("dispatcher closed")
	// ErrSubscriptionMismatch is returned when unsubscribing an ID from a channel
	// it was not created on.
	ErrSubscriptionMismatch = errors.New("subscription belongs to another channel")
)

// Config holds configuration for the Dispatcher.
type Config struct {
	Registry *channel.Registry
	// EventBus is optional; when nil the dispatcher creates and owns one.
	EventBus eventbus.EventBus
	// Timeout bounds every Invoke. Zero means callers wait until their context ends.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Dispatcher binds handlers to request channels and listeners to event channels.
type Dispatcher struct {
	registry *channel.Registry
	bus      eventbus.EventBus
	ownsBus  bool
	timeout  time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	handlers map[channel.Channel]command.Handler
	subs     map[eventbus.SubscriptionID]channel.Channel
	phase    state.Phase

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a dispatcher in the Configuring phase.
func New(cfg *Config) (*Dispatcher, error) {
	if cfg == nil || cfg.Registry == nil {
		return nil, errors.New("dispatch: registry is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	d := &Dispatcher{
		registry: cfg.Registry,
		bus:      cfg.EventBus,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		handlers: make(map[channel.Channel]command.Handler),
		subs:     make(map[eventbus.SubscriptionID]channel.Channel),
		phase:    state.PhaseConfiguring,
	}
	if d.bus == nil {
		d.bus = eventbus.New(cfg.Logger)
		d.ownsBus = true
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())

	return d, nil
}

// Registry returns the registry the dispatcher validates against.
func (d *Dispatcher) Registry() *channel.Registry {
	return d.registry
}

// Phase returns the current lifecycle phase.
func (d *Dispatcher) Phase() state.Phase {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.phase
}

// RegisterHandler binds exactly one handler to a request channel.
// On ErrDuplicateHandler the existing handler stays active.
func (d *Dispatcher) RegisterHandler(ch channel.Channel, h command.Handler) error {
	def, err := d.registry.Require(ch)
	if err != nil {
		return err
	}
	if def.Kind != channel.KindRequest {
		return fmt.Errorf("%w: %q is an %s channel", ErrWrongKind, ch, def.Kind)
	}
	if h == nil {
		return fmt.Errorf("dispatch: nil handler for %q", ch)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.phase.CanRegisterHandlers() {
		if d.phase.IsTerminal() {
			return ErrClosed
		}
		return fmt.Errorf("%w: %q", ErrSealed, ch)
	}
	if _, exists := d.handlers[ch]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateHandler, ch)
	}
	d.handlers[ch] = h

	d.logger.Debug("Handler registered", "channel", ch)
	return nil
}

// HasHandler reports whether ch has a handler.
func (d *Dispatcher) HasHandler(ch channel.Channel) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[ch]
	return ok
}

// MissingHandlers returns the request channels that have no handler, in catalog order.
func (d *Dispatcher) MissingHandlers() []channel.Channel {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var missing []channel.Channel
	for _, ch := range d.registry.OfKind(channel.KindRequest) {
		if _, ok := d.handlers[ch]; !ok {
			missing = append(missing, ch)
		}
	}
	return missing
}

// Start freezes the handler table and moves the dispatcher to Serving.
// Unbound request channels are reported in the log.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	if !d.phase.CanTransitionTo(state.PhaseServing) {
		from := d.phase
		d.mu.Unlock()
		return state.NewTransitionError(from, state.PhaseServing, "")
	}
	d.phase = state.PhaseServing
	bound := len(d.handlers)
	d.mu.Unlock()

	if missing := d.MissingHandlers(); len(missing) > 0 {
		d.logger.Warn("Request channels without handlers", "count", len(missing), "channels", missing)
	}
	d.logger.Info("Dispatcher started", "handlers", bound, "channels", d.registry.Len())
	return nil
}

// Close cancels pending invocations and shuts down an owned event bus.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.phase.IsTerminal() {
		d.mu.Unlock()
		return
	}
	d.phase = state.PhaseClosed
	d.mu.Unlock()

	d.cancel()
	if d.ownsBus {
		d.bus.Close()
	}
	d.logger.Info("Dispatcher closed")
}

// Invoke calls the handler bound to ch and returns its response. It never
// panics: every failure is reported inside the Response.
func (d *Dispatcher) Invoke(ctx context.Context, ch channel.Channel, args command.Args) *command.Response {
	return d.Call(ctx, command.NewRequest(ch, args))
}

// Call is Invoke for a prepared request.
func (d *Dispatcher) Call(ctx context.Context, req *command.Request) *command.Response {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, logger := logging.ForCommand(ctx, req, d.logger)

	d.mu.RLock()
	phase := d.phase
	h, ok := d.handlers[req.Channel]
	d.mu.RUnlock()

	if !phase.CanInvoke() {
		return command.Fail(req.Channel, command.CodeCancelled, "dispatcher closed")
	}
	if !ok {
		logger.Debug("Request on unbound channel")
		return command.Fail(req.Channel, command.CodeUnknownChannel, "no handler registered for %q", req.Channel)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan *command.Response, 1)
	go func() {
		done <- d.run(ctx, h, req)
	}()

	// The handler goroutine is not stopped when the caller gives up; it only
	// loses its reader.
	select {
	case resp := <-done:
		logger.Debug("Request handled", "ok", resp.OK(), "elapsed", time.Since(start))
		return resp
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Warn("Request timed out", "elapsed", time.Since(start))
			return command.Fail(req.Channel, command.CodeTimeout, "no response after %s", time.Since(start).Round(time.Millisecond))
		}
		return command.Fail(req.Channel, command.CodeCancelled, "caller stopped waiting: %v", ctx.Err())
	case <-d.ctx.Done():
		return command.Fail(req.Channel, command.CodeCancelled, "dispatcher closed")
	}
}

// run calls h with a context whose logger carries the request's channel.
func (d *Dispatcher) run(ctx context.Context, h command.Handler, req *command.Request) (resp *command.Response) {
	logger := logging.From(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Handler panicked", "panic", r)
			resp = command.Fail(req.Channel, command.CodeHandlerFailure, "handler panicked: %v", r)
		}
	}()

	result, err := h(ctx, req)
	if err != nil {
		logger.Warn("Handler failed", "error", err)
		return command.Fail(req.Channel, command.CodeHandlerFailure, "%s", err.Error())
	}
	return command.Success(req.Channel, result)
}

// Subscribe adds a listener to an event channel.
func (d *Dispatcher) Subscribe(ch channel.Channel, listener event.Listener) (eventbus.SubscriptionID, error) {
	if err := d.requireEvent(ch); err != nil {
		return "", err
	}
	if listener == nil {
		return "", fmt.Errorf("dispatch: nil listener for %q", ch)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase.IsTerminal() {
		return "", ErrClosed
	}
	id := d.bus.Subscribe(ch, listener)
	d.subs[id] = ch
	return id, nil
}

// Unsubscribe removes a listener previously added to ch with Subscribe.
// Unknown IDs are ignored.
func (d *Dispatcher) Unsubscribe(ch channel.Channel, id eventbus.SubscriptionID) error {
	if err := d.requireEvent(ch); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	owner, ok := d.subs[id]
	if !ok {
		return nil
	}
	if owner != ch {
		return fmt.Errorf("%w: %s is on %q, not %q", ErrSubscriptionMismatch, id, owner, ch)
	}
	delete(d.subs, id)
	d.bus.Unsubscribe(id)
	return nil
}

// Publish broadcasts payload on an event channel without waiting for listeners.
func (d *Dispatcher) Publish(ch channel.Channel, payload any) error {
	if err := d.requireEvent(ch); err != nil {
		return err
	}
	if !d.bus.Publish(event.New(ch, payload)) {
		return ErrClosed
	}
	return nil
}

// Flush waits until every event published so far has been delivered.
func (d *Dispatcher) Flush() {
	d.bus.Flush()
}

func (d *Dispatcher) requireEvent(ch channel.Channel) error {
	def, err := d.registry.Require(ch)
	if err != nil {
		return err
	}
	if def.Kind != channel.KindEvent {
		return fmt.Errorf("%w: %q is a %s channel", ErrWrongKind, ch, def.Kind)
	}
	return nil
}
