package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Service provides business logic for settings, layering stored values over defaults.
type Service struct {
	repo     Repository
	defaults map[string]json.RawMessage
	now      func() time.Time
}

// NewService creates a new settings service. defaults may be nil.
func NewService(repo Repository, defaults map[string]json.RawMessage) *Service {
	d := make(map[string]json.RawMessage, len(defaults))
	for k, v := range defaults {
		d[k] = v
	}
	return &Service{repo: repo, defaults: d, now: time.Now}
}

// DefaultValues returns the built-in defaults of the player.
func DefaultValues() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"player.volume":        json.RawMessage(`0.8`),
		"player.gapless":       json.RawMessage(`true`),
		"cache.maxSizeMB":      json.RawMessage(`2048`),
		"scrobbler.enabled":    json.RawMessage(`false`),
		"window.closeToTray":   json.RawMessage(`true`),
		"collection.sortOrder": json.RawMessage(`"artist"`),
	}
}

// Get returns the stored value of key, falling back to its default.
func (s *Service) Get(ctx context.Context, key string) (json.RawMessage, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	setting, err := s.repo.Find(ctx, key)
	if err != nil {
		return nil, err
	}
	if setting != nil {
		return setting.Value, nil
	}
	if v, ok := s.defaults[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
}

// Set stores value under key.
func (s *Service) Set(ctx context.Context, key string, value json.RawMessage) (*Setting, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if len(value) == 0 || !json.Valid(value) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidValue, key)
	}

	setting := &Setting{Key: key, Value: value, UpdatedAt: s.now().UTC()}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, err
	}
	return setting, nil
}

// All returns defaults overlaid with stored values.
func (s *Service) All(ctx context.Context) (map[string]json.RawMessage, error) {
	stored, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(s.defaults)+len(stored))
	for k, v := range s.defaults {
		out[k] = v
	}
	for _, setting := range stored {
		out[setting.Key] = setting.Value
	}
	return out, nil
}

// Reset removes the stored value of key and returns the effective value afterwards,
// which is the default or nil when the key has none.
func (s *Service) Reset(ctx context.Context, key string) (json.RawMessage, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		return nil, err
	}
	return s.defaults[key], nil
}
