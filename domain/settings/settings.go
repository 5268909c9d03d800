// Package settings defines the user Setting entity and the service behind the
// settings channels.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Common errors for settings operations.
var (
	ErrInvalidKey   = errors.New("invalid setting key")
	ErrInvalidValue = errors.New("setting value is not valid JSON")
	ErrNotFound     = errors.New("setting not found")
)

// MaxKeyLength bounds setting keys.
const MaxKeyLength = 128

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Setting is a single persisted preference.
type Setting struct {
	// Key is the dotted setting name, e.g. "player.volume"
	Key string

	// Value is the raw JSON value
	Value json.RawMessage

	// UpdatedAt is the time of the last write
	UpdatedAt time.Time
}

// ValidateKey checks that key is usable as a setting name.
func ValidateKey(key string) error {
	if key == "" || len(key) > MaxKeyLength || !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Clone creates a deep copy of the setting.
func (s *Setting) Clone() *Setting {
	clone := &Setting{Key: s.Key, UpdatedAt: s.UpdatedAt}
	if s.Value != nil {
		clone.Value = append(json.RawMessage(nil), s.Value...)
	}
	return clone
}
