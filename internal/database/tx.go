package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TxRunner runs fn inside a single database transaction.  Services
// depend on this interface so tests can substitute a pass-through.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// SQLTx is the *sql.DB backed TxRunner.
type SQLTx struct{ DB *sql.DB }

// WithTx begins a transaction, runs fn and commits.  Any error from fn,
// or a panic, rolls the transaction back.
func (s SQLTx) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
