package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsCheckViolation checks if the error is a PostgreSQL check constraint violation (code 23514).
func IsCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514"
	}
	return false
}
