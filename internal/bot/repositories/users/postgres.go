package users

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

func (r *PostgresRepository) Get(ctx context.Context, userID int64) (*models.User, error) {
	query := `
		SELECT user_id, last_auth_at, is_vip
		FROM users
		WHERE user_id = $1
	`
	user := &models.User{}
	var lastAuth sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&user.ID, &lastAuth, &user.IsVIP); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	if lastAuth.Valid {
		user.LastAuthAt = &lastAuth.Time
	}
	return user, nil
}

// SetAuth upserts the row, leaving an existing VIP flag intact.
func (r *PostgresRepository) SetAuth(ctx context.Context, userID int64, t time.Time) error {
	query := `
		INSERT INTO users (user_id, last_auth_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET last_auth_at = EXCLUDED.last_auth_at
	`
	if _, err := r.db.ExecContext(ctx, query, userID, t); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

// SetVIP upserts the row, leaving an existing auth timestamp intact.
func (r *PostgresRepository) SetVIP(ctx context.Context, userID int64, isVIP bool) error {
	query := `
		INSERT INTO users (user_id, is_vip)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET is_vip = EXCLUDED.is_vip
	`
	if _, err := r.db.ExecContext(ctx, query, userID, isVIP); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}
