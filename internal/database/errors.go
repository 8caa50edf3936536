package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorClassTransient:
		return "transient"
	case ErrorClassDeadlock:
		return "deadlock"
	case ErrorClassSerialization:
		return "serialization"
	default:
		return "permanent"
	}
}

const (
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeLockNotAvailable     = "55P03"
	CodeUniqueViolation      = "23505"
	CodeForeignKeyViolation  = "23503"
	CodeNotNullViolation     = "23502"
	CodeCheckViolation       = "23514"
)

// SQLState extracts the SQLSTATE from either driver's error type.
func SQLState(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}

	return "", false
}

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	code, ok := SQLState(err)
	if !ok {
		return ErrorClassPermanent
	}

	switch code {
	case CodeSerializationFailure:
		return ErrorClassSerialization
	case CodeDeadlockDetected:
		return ErrorClassDeadlock
	case CodeLockNotAvailable:
		return ErrorClassTransient
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

func IsUniqueViolation(err error) bool {
	code, ok := SQLState(err)
	return ok && code == CodeUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	code, ok := SQLState(err)
	return ok && code == CodeForeignKeyViolation
}
