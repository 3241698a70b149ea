// Package settings declares the repository contract for persisted key/value
// settings, currently the upload password hash.
package settings

import "context"

// KeyPasswordHash stores the bcrypt hash of the current upload password.
const KeyPasswordHash = "password_hash"

// Repository defines operations over the settings table.
type Repository interface {
	// Get returns the value for key. Implementations should return a
	// not-found error when the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores the value for key, replacing a prior value.
	Set(ctx context.Context, key, value string) error
}
