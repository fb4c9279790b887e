package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrStatusConflict is returned when a compare-and-set status transition
// finds the record in a non-eligible state. Exactly one of two concurrent
// advances observes the eligible state; the loser gets this error.
var ErrStatusConflict = errors.New("record status not eligible for transition")

// ErrInsufficientBalance is returned when a disposal would drive an
// extracted-quantity balance below zero.
var ErrInsufficientBalance = errors.New("insufficient extracted balance")

// ErrDuplicate is returned on unique-key collisions (identity phone numbers).
var ErrDuplicate = errors.New("duplicate record")

// uniqueViolation is the Postgres SQLSTATE for unique-key violations.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
