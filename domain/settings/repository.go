package settings

import "context"

// Repository defines the interface for settings persistence operations.
type Repository interface {
	// Find retrieves a setting by key.
	// Returns nil if not found.
	Find(ctx context.Context, key string) (*Setting, error)

	// FindAll retrieves all stored settings.
	FindAll(ctx context.Context) ([]*Setting, error)

	// Upsert creates or replaces a setting.
	Upsert(ctx context.Context, setting *Setting) error

	// Delete removes a setting by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
