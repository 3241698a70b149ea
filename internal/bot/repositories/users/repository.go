// Package users declares the repository contract for the per-user
// identity records (password-auth timestamps and VIP flags).
package users

import (
	"context"
	"time"

	"github.com/contentgate/contentgate/internal/bot/models"
)

// Repository defines operations over identity rows. Users are created
// implicitly by SetAuth or SetVIP and never deleted.
type Repository interface {
	// Get returns the identity row for the given user id.
	// Implementations should return a not-found error when the row is absent.
	Get(ctx context.Context, userID int64) (*models.User, error)

	// SetAuth records a successful password authentication at t,
	// preserving the user's VIP flag.
	SetAuth(ctx context.Context, userID int64, t time.Time) error

	// SetVIP sets the VIP flag, preserving the last authentication timestamp.
	SetVIP(ctx context.Context, userID int64, isVIP bool) error
}
