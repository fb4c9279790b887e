package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestUniqueViolationDetection(t *testing.T) {
	dup := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "identities_phone_key"}
	if !isUniqueViolation(dup) {
		t.Fatal("SQLSTATE 23505 should be detected as a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("insert identity: %w", dup)) {
		t.Fatal("wrapped unique violations should still be detected")
	}

	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign-key violations are not duplicates")
	}
	if isUniqueViolation(errors.New("connection reset")) {
		t.Fatal("plain errors are not duplicates")
	}
	if isUniqueViolation(nil) {
		t.Fatal("nil is not a duplicate")
	}
}
