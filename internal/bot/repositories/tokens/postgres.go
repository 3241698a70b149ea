package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Upsert(ctx context.Context, t *models.AccessToken) error {
	query := `
		INSERT INTO tokens (token, user_id, content_id, issued_at, expires_at, is_used)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			content_id = EXCLUDED.content_id,
			issued_at = EXCLUDED.issued_at,
			expires_at = EXCLUDED.expires_at,
			is_used = EXCLUDED.is_used
	`
	if _, err := r.db.ExecContext(ctx, query,
		t.Token, t.UserID, t.ContentID, t.IssuedAt, t.ExpiresAt, t.IsUsed); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, token string) (*models.AccessToken, error) {
	query := `
		SELECT token, user_id, content_id, issued_at, expires_at, is_used
		FROM tokens
		WHERE token = $1
	`
	t := &models.AccessToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&t.Token, &t.UserID, &t.ContentID, &t.IssuedAt, &t.ExpiresAt, &t.IsUsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) GetLatestForUserContent(ctx context.Context, userID, contentID int64) (*models.AccessToken, error) {
	query := `
		SELECT token, user_id, content_id, issued_at, expires_at, is_used
		FROM tokens
		WHERE user_id = $1 AND content_id = $2
		ORDER BY issued_at DESC
		LIMIT 1
	`
	t := &models.AccessToken{}
	err := r.db.QueryRowContext(ctx, query, userID, contentID).Scan(
		&t.Token, &t.UserID, &t.ContentID, &t.IssuedAt, &t.ExpiresAt, &t.IsUsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return t, nil
}

// Redeem is the single conditional update that makes redemption exactly-once:
// concurrent calls for the same token see at most one affected row.
func (r *PostgresRepository) Redeem(ctx context.Context, token string, userID int64, now time.Time) (bool, error) {
	query := `
		UPDATE tokens SET is_used = TRUE
		WHERE token = $1 AND user_id = $2 AND is_used = FALSE AND expires_at > $3
	`
	res, err := r.db.ExecContext(ctx, query, token, userID, now)
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	return affected == 1, nil
}
