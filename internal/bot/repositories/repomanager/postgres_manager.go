package repomanager

import (
	"context"
	"database/sql"

	"github.com/contentgate/contentgate/internal/bot/migrations"
	"github.com/contentgate/contentgate/internal/bot/repositories/content"
	"github.com/contentgate/contentgate/internal/bot/repositories/settings"
	"github.com/contentgate/contentgate/internal/bot/repositories/shortreqs"
	"github.com/contentgate/contentgate/internal/bot/repositories/tokens"
	"github.com/contentgate/contentgate/internal/bot/repositories/users"
	"github.com/contentgate/contentgate/internal/dbx"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Content(db dbx.DBTX) content.Repository {
	return content.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Tokens(db dbx.DBTX) tokens.Repository {
	return tokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Settings(db dbx.DBTX) settings.Repository {
	return settings.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) ShortenerRequests(db dbx.DBTX) shortreqs.Repository {
	return shortreqs.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return err
	}

	return nil
}
