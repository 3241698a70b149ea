// Package dbx is the thin DB seam under the repositories: DBTX is the
// query surface satisfied by both *sql.DB and *sql.Tx, so a repository
// works the same standalone and inside a transaction, and WithTx is the
// transaction wrapper the publish flow uses to commit a content row and
// its media items as one unit.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql the content-gate repositories issue
// queries through. Both *sql.DB and *sql.Tx satisfy it, which is what lets
// repomanager factories hand out repositories bound to either.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn against it, and commits on success.
// An error or panic from fn rolls the transaction back; panics are
// rethrown after the rollback.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    repo := m.Content(tx)
//	    ...
//	    return nil
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
