package repository

import (
	"errors"

	"kart-commerce/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes that signal lock contention.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
)

// TranslateError maps deadlocks, lock timeouts and serialization failures to a
// retryable conflict. Other errors are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return model.NewConflictError(err)
		}
	}
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
}
