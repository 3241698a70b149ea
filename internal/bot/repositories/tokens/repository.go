// Package tokens declares the repository contract for single-use access
// tokens. Rows are never deleted; they form the audit trail.
package tokens

import (
	"context"
	"time"

	"github.com/contentgate/contentgate/internal/bot/models"
)

// Repository defines persistence operations for access tokens.
type Repository interface {
	// Upsert stores the token, replacing a prior row keyed by the same token
	// value. Collisions of random tokens are not a functional path.
	Upsert(ctx context.Context, t *models.AccessToken) error

	// Get returns the token row by its opaque string.
	// Implementations should return a not-found error when the row is absent.
	Get(ctx context.Context, token string) (*models.AccessToken, error)

	// GetLatestForUserContent returns the most recently issued token for the
	// (user, content) pair, regardless of its used or expiry state.
	GetLatestForUserContent(ctx context.Context, userID, contentID int64) (*models.AccessToken, error)

	// Redeem atomically marks the token used when, and only when, it is
	// unused, unexpired at now, and owned by userID. It reports whether this
	// call won the update; losing a concurrent race reports false.
	Redeem(ctx context.Context, token string, userID int64, now time.Time) (bool, error)
}
