package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsUniqueViolation(err error) bool     { return pgCode(err) == uniqueViolation }
func IsForeignKeyViolation(err error) bool { return pgCode(err) == foreignKeyViolation }
func IsCheckViolation(err error) bool      { return pgCode(err) == checkViolation }

func IsNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }
