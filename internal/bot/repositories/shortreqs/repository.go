// Package shortreqs declares the repository contract for the shortener
// request audit log.
package shortreqs

import (
	"context"

	"github.com/contentgate/contentgate/internal/bot/models"
)

// Repository records link-shortening attempts and their completion state.
type Repository interface {
	// Create inserts one audit row.
	Create(ctx context.Context, req *models.ShortenerRequest) error

	// UpdateStatusByToken marks the request(s) for a token with the given
	// status, used when a shortener completion callback arrives.
	UpdateStatusByToken(ctx context.Context, token, status string) error
}
