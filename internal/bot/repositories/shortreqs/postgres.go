package shortreqs

import (
	"context"
	"fmt"

	"github.com/contentgate/contentgate/internal/bot/models"
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

func (r *PostgresRepository) Create(ctx context.Context, req *models.ShortenerRequest) error {
	query := `
		INSERT INTO shortener_requests (id, short_url, token, status)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, req.ID, req.ShortURL, req.Token, req.Status); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateStatusByToken(ctx context.Context, token, status string) error {
	query := `
		UPDATE shortener_requests SET status = $1
		WHERE token = $2
	`
	if _, err := r.db.ExecContext(ctx, query, status, token); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}
