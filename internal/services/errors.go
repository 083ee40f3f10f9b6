package services

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Postgres error codes translated into user-facing validation messages.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// ValidationError is an expected business-rule violation (duplicate record,
// overdraft limit exceeded, malformed field). Handlers flash its message to
// the user instead of treating it as a server failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TranslateDBError maps database constraint violations onto validation
// errors with entity-specific messages. Anything else propagates unchanged.
func TranslateDBError(err error, uniqueMsg, fkMsg string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return &ValidationError{Message: uniqueMsg}
		case pqForeignKeyViolation:
			return &ValidationError{Message: fkMsg}
		}
	}
	return err
}
