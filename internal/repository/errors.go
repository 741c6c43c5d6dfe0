// Package repository defines the data access layer and the error types
// reused across repositories.  These sentinel values allow higher layers
// such as services and handlers to distinguish between failure scenarios:
// ErrNotFound maps to 404, ErrForbidden to 403, ErrConflict,
// ErrInvalidTransition and ErrInsufficientStock to 409.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot proceed because
// of existing dependent records or a uniqueness clash.
var ErrConflict = errors.New("conflict")

// ErrInsufficientStock is returned when a stock decrement would take a
// listing or material below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrInvalidTransition is returned when a status change is not allowed
// from the row's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrEmailExists is returned by UserRepo.Create on a duplicate email.
var ErrEmailExists = errors.New("email already exists")

// mysqlDuplicateEntry is the server error number for a unique key clash.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// notFound converts sql.ErrNoRows into ErrNotFound and passes any other
// error through unchanged.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// mustAffect turns a zero rows-affected result into ErrNotFound.
func mustAffect(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
