// Package dbx holds the database/sql glue shared by the license and event
// repositories: the DBTX handle they are built on and WithTx, which keeps a
// license update and its audit event in one transaction.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is what a repository needs from the database. *sql.DB and *sql.Tx
// both satisfy it, so the same repository works inside and outside WithTx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction on db. The transaction commits when fn
// returns nil and rolls back otherwise; a panic in fn rolls back and is
// re-raised. The license stores use it so that a usage change is never
// persisted without its event:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    if err := rm.Licenses(tx).UpdateUsage(ctx, name, views, expires); err != nil {
//	        return err
//	    }
//	    _, err := rm.Events(tx).Append(ctx, ev)
//	    return err
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

	return fn(ctx, tx)
}
