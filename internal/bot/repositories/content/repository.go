// Package content declares the repository contract for published content
// and its ordered media items.
package content

import (
	"context"

	"github.com/contentgate/contentgate/internal/bot/models"
)

// Repository defines persistence operations for content rows. Content is
// immutable once created except for the announcement message reference and
// a single description update for text-only payloads.
type Repository interface {
	// Create inserts a content row and returns it with ID and CreatedAt set.
	Create(ctx context.Context, c *models.Content) (*models.Content, error)

	// GetByID returns the content row. Implementations should return a
	// not-found error when the row is absent.
	GetByID(ctx context.Context, contentID int64) (*models.Content, error)

	// UpdateDescription replaces the description, used once to append the
	// url/text payload of text-only content.
	UpdateDescription(ctx context.Context, contentID int64, description string) error

	// SetAnnouncementMessageID records the channel message produced by a
	// successful announcement.
	SetAnnouncementMessageID(ctx context.Context, contentID, messageID int64) error

	// AddMediaItem appends one media row for the content.
	AddMediaItem(ctx context.Context, m *models.MediaItem) error

	// ListMedia returns the content's media items in insertion order.
	ListMedia(ctx context.Context, contentID int64) ([]models.MediaItem, error)
}
