// Package application provides the application layer: the backend services
// bound onto the command dispatcher.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tunebridge-go/core/channel"
	"tunebridge-go/core/command"
	"tunebridge-go/core/dispatch"
	"tunebridge-go/core/event"
	"tunebridge-go/core/eventbus"
	"tunebridge-go/domain/settings"
	"tunebridge-go/infrastructure/logging"
)

// Config holds configuration for the Backend.
type Config struct {
	Dispatcher *dispatch.Dispatcher
	// Settings is optional; without it the settings channels stay unbound.
	Settings *settings.Service
	// EventBus is the bus the dispatcher publishes on. When set, every event is
	// traced at debug level.
	EventBus eventbus.EventBus
	Version  string
	Logger   *slog.Logger
}

// Backend owns the services of the backend process and their channel bindings.
type Backend struct {
	dispatcher *dispatch.Dispatcher
	settings   *settings.Service
	eventBus   eventbus.EventBus
	version    string
	logger     *slog.Logger

	startedAt time.Time
	traceID   eventbus.SubscriptionID
}

type binding struct {
	channel channel.Channel
	handler command.Handler
}

// NewBackend creates a backend. Handlers are not registered until Bind.
func NewBackend(cfg *Config) (*Backend, error) {
	if cfg == nil || cfg.Dispatcher == nil {
		return nil, errors.New("application: dispatcher is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Backend{
		dispatcher: cfg.Dispatcher,
		settings:   cfg.Settings,
		eventBus:   cfg.EventBus,
		version:    cfg.Version,
		logger:     cfg.Logger,
	}, nil
}

// Bind registers the handlers of every service the backend provides.
func (b *Backend) Bind() error {
	bindings := b.systemBindings()
	if b.settings != nil {
		bindings = append(bindings, b.settingsBindings()...)
	}

	for _, bd := range bindings {
		if err := b.dispatcher.RegisterHandler(bd.channel, bd.handler); err != nil {
			return fmt.Errorf("failed to bind %s: %w", bd.channel, err)
		}
	}

	b.logger.Info("Backend services bound", "handlers", len(bindings))
	return nil
}

// Start moves the dispatcher to Serving.
func (b *Backend) Start() error {
	if err := b.dispatcher.Start(); err != nil {
		return err
	}
	b.startedAt = time.Now()

	if b.eventBus != nil {
		b.traceID = b.eventBus.SubscribeAll(b.traceEvent)
	}

	b.logger.Info("Backend started", "version", b.version, "fingerprint", b.dispatcher.Registry().Fingerprint())
	return nil
}

// Stop closes the dispatcher, cancelling pending invocations.
func (b *Backend) Stop() {
	if b.eventBus != nil && b.traceID != "" {
		b.eventBus.Unsubscribe(b.traceID)
		b.traceID = ""
	}
	b.dispatcher.Close()
	b.logger.Info("Backend stopped")
}

// publish reports a failed publication without failing the request that caused it.
func (b *Backend) publish(ctx context.Context, ch channel.Channel, payload any) {
	if err := b.dispatcher.Publish(ch, payload); err != nil {
		logging.FromOr(ctx, b.logger).Warn("Failed to publish event", "event", ch, "error", err)
	}
}

func (b *Backend) traceEvent(e *event.Event) {
	b.logger.Debug("Event published", logging.EventAttr(e), "at", e.At)
}
