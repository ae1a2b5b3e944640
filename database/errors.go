package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/datapipe/errors"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"connection closed",
	"driver: bad connection",
	"invalid connection",
	"unable to open database file",
}

// sqlite reports lock contention as "database is locked" or SQLITE_BUSY.
var transientPatterns = []string{
	"database is locked",
	"database table is locked",
	"sqlite_busy",
	"deadlock",
	"too many connections",
}

func containsAny(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// IsConnectionError reports whether err means the database could not be
// reached.
func IsConnectionError(err error) bool { return containsAny(err, connectionPatterns) }

// IsRetryableError reports whether repeating the statement may succeed.
func IsRetryableError(err error) bool {
	return IsConnectionError(err) || containsAny(err, transientPatterns)
}

// FromDatabase converts a gorm or driver error to an AppError naming
// resource. Missing records become NOT_FOUND and duplicate keys INVALID_INPUT;
// only transient failures stay retryable.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(resource, "").WithCause(err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.InvalidInput(resource, "duplicate key").WithCause(err)
	case IsConnectionError(err):
		appErr = apperrors.ConnectionFailed("database").WithCause(err)
	default:
		appErr = apperrors.DatabaseError(err)
		appErr.Retryable = IsRetryableError(err)
	}
	return appErr.WithDetail("resource", resource)
}
