// Package repomanager wires the per-aggregate repositories to a database
// handle. Services obtain repositories through the manager so that the same
// repository code can run against *sql.DB or a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/contentgate/contentgate/internal/bot/repositories/content"
	"github.com/contentgate/contentgate/internal/bot/repositories/settings"
	"github.com/contentgate/contentgate/internal/bot/repositories/shortreqs"
	"github.com/contentgate/contentgate/internal/bot/repositories/tokens"
	"github.com/contentgate/contentgate/internal/bot/repositories/users"
	"github.com/contentgate/contentgate/internal/dbx"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Content(db dbx.DBTX) content.Repository
	Tokens(db dbx.DBTX) tokens.Repository
	Settings(db dbx.DBTX) settings.Repository
	ShortenerRequests(db dbx.DBTX) shortreqs.Repository
}
