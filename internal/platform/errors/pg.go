package errors

import (
	"context"
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the stores react to
const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
	pgErrNotNullViolation    = "23502"
	pgErrCheckViolation      = "23514"
	pgErrStringTooLong       = "22001"
	pgErrBadTextValue        = "22P02"
	pgErrSerialization       = "40001"
	pgErrDeadlock            = "40P01"
	pgErrLockNotAvailable    = "55P03"
	pgErrReadOnly            = "25006"
	pgErrCannotConnectNow    = "57P03"
)

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if stderrs.As(Root(err), &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsDuplicateKey reports whether err is a unique constraint violation,
// e.g. a second contributions row for the same proof hash
func IsDuplicateKey(err error) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == pgErrUniqueViolation
}

func pgCode(pgErr *pgconn.PgError) ErrorCode {
	switch pgErr.Code {
	case pgErrUniqueViolation:
		return ErrorCodeDuplicateKey
	case pgErrForeignKeyViolation, pgErrStringTooLong, pgErrBadTextValue:
		return ErrorCodeInvalidArgument
	case pgErrNotNullViolation, pgErrCheckViolation:
		return ErrorCodeValidation
	case pgErrReadOnly, pgErrCannotConnectNow:
		return ErrorCodeUnavailable
	}
	return ErrorCodeDB
}

// FromPostgres wraps err with a code derived from its SQLSTATE; nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	if pgErr, ok := pgError(err); ok {
		return Wrap(err, pgCode(pgErr), msg)
	}
	return Wrap(err, ErrorCodeDB, msg)
}

// FromPostgresWithField is FromPostgres plus the offending column when Postgres names one
// constraint names are read as <table>_<column>_<suffix>, so contributions_proof_hash_key gives proof_hash
func FromPostgresWithField(err error, msg string) error {
	out := FromPostgres(err, msg)
	pgErr, ok := pgError(err)
	if !ok {
		return out
	}
	if col := strings.TrimSpace(pgErr.ColumnName); col != "" {
		return WithField(out, col)
	}
	if f := constraintField(pgErr.TableName, pgErr.ConstraintName); f != "" {
		return WithField(out, f)
	}
	return out
}

func constraintField(table, constraint string) string {
	c := strings.TrimSpace(constraint)
	if table != "" {
		c = strings.TrimPrefix(c, table+"_")
	}
	for _, suf := range []string{"_pkey", "_fkey", "_key", "_check"} {
		if s, ok := strings.CutSuffix(c, suf); ok {
			c = s
			break
		}
	}
	if c == constraint {
		return ""
	}
	return c
}

// IsRetryable reports whether a database error is transient contention worth another attempt
// local cancellation is never retryable
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pgErr, ok := pgError(err); ok {
		switch pgErr.Code {
		case pgErrSerialization, pgErrDeadlock, pgErrLockNotAvailable:
			return true
		}
		return false
	}
	s := strings.ToLower(Root(err).Error())
	for _, marker := range []string{
		"commit unexpectedly resulted in rollback",
		"deadlock detected",
		"could not serialize access",
		"canceling statement due to lock timeout",
		"terminating connection due to administrator command",
	} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
