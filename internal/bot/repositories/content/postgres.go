package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/contentgate/contentgate/internal/bot/models"
	"github.com/contentgate/contentgate/internal/common"
	"github.com/contentgate/contentgate/internal/dbx"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Content) (*models.Content, error) {
	query := `
		INSERT INTO content (uploader_id, thumb_file_id, description, is_text_only, requires_token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING content_id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.UploaderID, c.ThumbFileID, c.Description, c.IsTextOnly, c.RequiresToken).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, contentID int64) (*models.Content, error) {
	query := `
		SELECT content_id, uploader_id, thumb_file_id, description, is_text_only, requires_token, created_at, announcement_message_id
		FROM content
		WHERE content_id = $1
	`
	c := &models.Content{}
	var announcement sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, contentID).Scan(
		&c.ID, &c.UploaderID, &c.ThumbFileID, &c.Description,
		&c.IsTextOnly, &c.RequiresToken, &c.CreatedAt, &announcement)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	if announcement.Valid {
		c.AnnouncementMessageID = &announcement.Int64
	}
	return c, nil
}

func (r *PostgresRepository) UpdateDescription(ctx context.Context, contentID int64, description string) error {
	query := `
		UPDATE content SET description = $1
		WHERE content_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, description, contentID); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetAnnouncementMessageID(ctx context.Context, contentID, messageID int64) error {
	query := `
		UPDATE content SET announcement_message_id = $1
		WHERE content_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, messageID, contentID); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AddMediaItem(ctx context.Context, m *models.MediaItem) error {
	query := `
		INSERT INTO media_items (content_id, file_id, file_unique_id, media_type, is_forwarded)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query,
		m.ContentID, m.FileID, m.FileUniqueID, m.Type, m.IsForwarded); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListMedia(ctx context.Context, contentID int64) ([]models.MediaItem, error) {
	query := `
		SELECT media_id, content_id, file_id, file_unique_id, media_type, is_forwarded
		FROM media_items
		WHERE content_id = $1
		ORDER BY media_id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, contentID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var items []models.MediaItem
	for rows.Next() {
		var m models.MediaItem
		if err := rows.Scan(&m.ID, &m.ContentID, &m.FileID, &m.FileUniqueID, &m.Type, &m.IsForwarded); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return items, nil
}
