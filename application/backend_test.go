package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"tunebridge-go/core/channel"
	"tunebridge-go/core/command"
	"tunebridge-go/core/dispatch"
	"tunebridge-go/core/event"
	"tunebridge-go/core/eventbus"
	"tunebridge-go/domain/settings"
	"tunebridge-go/infrastructure/repository"
)

func newTestBackend(t *testing.T) (*Backend, *dispatch.Dispatcher) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg, err := channel.NewDefaultRegistry()
	if err != nil {
		t.Fatalf("NewDefaultRegistry() error = %v", err)
	}
	bus := eventbus.New(logger)
	d, err := dispatch.New(&dispatch.Config{Registry: reg, EventBus: bus, Logger: logger})
	if err != nil {
		t.Fatalf("dispatch.New() error = %v", err)
	}

	svc := settings.NewService(repository.NewMemorySettingsRepository(), settings.DefaultValues())
	b, err := NewBackend(&Config{Dispatcher: d, Settings: svc, EventBus: bus, Version: "1.2.3", Logger: logger})
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	if err := b.Bind(); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		b.Stop()
		bus.Close()
	})
	return b, d
}

func invoke(t *testing.T, d *dispatch.Dispatcher, ch channel.Channel, values ...any) *command.Response {
	t.Helper()
	args, err := command.NewArgs(values...)
	if err != nil {
		t.Fatalf("NewArgs() error = %v", err)
	}
	return d.Invoke(context.Background(), ch, args)
}

func TestNewBackend_RequiresDispatcher(t *testing.T) {
	if _, err := NewBackend(&Config{}); err == nil {
		t.Error("NewBackend() error = nil, want error")
	}
}

func TestBackend_BindTwiceFails(t *testing.T) {
	b, _ := newTestBackend(t)
	if err := b.Bind(); err == nil {
		t.Error("second Bind() error = nil, want error")
	}
}

func TestBackend_UnboundChannelsReported(t *testing.T) {
	_, d := newTestBackend(t)

	missing := d.MissingHandlers()
	for _, ch := range missing {
		def, _ := d.Registry().Lookup(ch)
		if def.Group == channel.GroupSystem && ch != channel.SystemOpenExternal {
			t.Errorf("system channel %q left unbound", ch)
		}
		if def.Group == channel.GroupSettings {
			t.Errorf("settings channel %q left unbound", ch)
		}
	}
	if len(missing) == 0 {
		t.Error("MissingHandlers() is empty, want the unimplemented services")
	}
}

func TestBackend_Ping(t *testing.T) {
	_, d := newTestBackend(t)

	var got PingResult
	if err := invoke(t, d, channel.SystemPing).Decode(&got); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !got.Pong || got.At == 0 {
		t.Errorf("ping = %+v, want pong with timestamp", got)
	}
}

func TestBackend_GetVersion(t *testing.T) {
	_, d := newTestBackend(t)

	var got VersionInfo
	if err := invoke(t, d, channel.SystemGetVersion).Decode(&got); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Version != "1.2.3" {
		t.Errorf("Version = %q, want 1.2.3", got.Version)
	}
	if got.Fingerprint != d.Registry().Fingerprint() {
		t.Errorf("Fingerprint = %q, want %q", got.Fingerprint, d.Registry().Fingerprint())
	}
	if got.Channels != d.Registry().Len() {
		t.Errorf("Channels = %d, want %d", got.Channels, d.Registry().Len())
	}
	if got.StartedAt == 0 {
		t.Error("StartedAt = 0 after Start")
	}
}

func TestBackend_GetChannels(t *testing.T) {
	_, d := newTestBackend(t)

	var all dispatch.Catalog
	if err := invoke(t, d, channel.SystemGetChannels).Decode(&all); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(all.Channels) != d.Registry().Len() {
		t.Errorf("len(Channels) = %d, want %d", len(all.Channels), d.Registry().Len())
	}

	var player dispatch.Catalog
	if err := invoke(t, d, channel.SystemGetChannels, "Player").Decode(&player); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want, _ := d.Registry().ChannelsFor(channel.GroupPlayer)
	if len(player.Channels) != len(want) {
		t.Errorf("len(player) = %d, want %d", len(player.Channels), len(want))
	}

	resp := invoke(t, d, channel.SystemGetChannels, "karaoke")
	if !errors.Is(resp.Err(), command.ErrHandlerFailure) {
		t.Errorf("unknown group err = %v, want HandlerFailure", resp.Err())
	}
}

func TestBackend_SettingsLifecycle(t *testing.T) {
	_, d := newTestBackend(t)

	var mu sync.Mutex
	var changes []event.SettingChanged
	_, err := d.Subscribe(channel.SettingsChanged, func(e *event.Event) {
		var c event.SettingChanged
		if err := e.Decode(&c); err != nil {
			t.Errorf("Decode() error = %v", err)
		}
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	var volume float64
	if err := invoke(t, d, channel.SettingsGet, "player.volume").Decode(&volume); err != nil {
		t.Fatalf("get default: %v", err)
	}
	if volume != 0.8 {
		t.Errorf("default volume = %v, want 0.8", volume)
	}

	if resp := invoke(t, d, channel.SettingsSet, "player.volume", 0.5); !resp.OK() {
		t.Fatalf("set failed: %v", resp.Err())
	}
	if err := invoke(t, d, channel.SettingsGet, "player.volume").Decode(&volume); err != nil || volume != 0.5 {
		t.Errorf("volume after set = %v, %v, want 0.5", volume, err)
	}

	var all map[string]json.RawMessage
	if err := invoke(t, d, channel.SettingsGetAll).Decode(&all); err != nil {
		t.Fatalf("getAll: %v", err)
	}
	if string(all["player.volume"]) != "0.5" {
		t.Errorf("getAll player.volume = %s, want 0.5", all["player.volume"])
	}
	if _, ok := all["player.gapless"]; !ok {
		t.Error("getAll is missing defaults")
	}

	if err := invoke(t, d, channel.SettingsReset, "player.volume").Decode(&volume); err != nil || volume != 0.8 {
		t.Errorf("reset = %v, %v, want 0.8", volume, err)
	}

	d.Flush()
	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 2 {
		t.Fatalf("len(changes) = %d, want 2", len(changes))
	}
	if changes[0].Key != "player.volume" || string(changes[0].Value) != "0.5" || changes[0].Reset {
		t.Errorf("changes[0] = %+v", changes[0])
	}
	if !changes[1].Reset || string(changes[1].Value) != "0.8" {
		t.Errorf("changes[1] = %+v", changes[1])
	}
}

func TestBackend_SettingsErrors(t *testing.T) {
	_, d := newTestBackend(t)

	tests := []struct {
		name   string
		ch     channel.Channel
		values []any
	}{
		{"unknown key", channel.SettingsGet, []any{"no.such.key"}},
		{"invalid key", channel.SettingsGet, []any{"bad key!"}},
		{"missing value", channel.SettingsSet, []any{"player.volume"}},
		{"missing key", channel.SettingsReset, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := invoke(t, d, tt.ch, tt.values...)
			if resp.OK() {
				t.Fatal("OK() = true, want failure")
			}
			if resp.Failure.Code != command.CodeHandlerFailure {
				t.Errorf("Code = %v, want HandlerFailure", resp.Failure.Code)
			}
		})
	}
}
