package application

import (
	"context"
	"encoding/json"

	"tunebridge-go/core/channel"
	"tunebridge-go/core/command"
	"tunebridge-go/core/event"
	"tunebridge-go/infrastructure/logging"
)

func (b *Backend) settingsBindings() []binding {
	return []binding{
		{channel.SettingsGet, command.Unary(b.getSetting)},
		{channel.SettingsSet, command.Binary(b.setSetting)},
		{channel.SettingsGetAll, command.NoArgs(b.getAllSettings)},
		{channel.SettingsReset, command.Unary(b.resetSetting)},
	}
}

func (b *Backend) getSetting(ctx context.Context, key string) (any, error) {
	return b.settings.Get(ctx, key)
}

func (b *Backend) setSetting(ctx context.Context, key string, value json.RawMessage) (any, error) {
	setting, err := b.settings.Set(ctx, key, value)
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("Setting changed", "key", key)
	b.publish(ctx, channel.SettingsChanged, event.SettingChanged{Key: setting.Key, Value: setting.Value})
	return true, nil
}

func (b *Backend) getAllSettings(ctx context.Context) (any, error) {
	return b.settings.All(ctx)
}

// resetSetting drops the stored value and returns the default now in effect.
func (b *Backend) resetSetting(ctx context.Context, key string) (any, error) {
	value, err := b.settings.Reset(ctx, key)
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("Setting reset", "key", key)
	b.publish(ctx, channel.SettingsChanged, event.SettingChanged{Key: key, Value: value, Reset: true})
	return value, nil
}
