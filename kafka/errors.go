package kafka

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/kbukum/datapipe/errors"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"broker not available",
	"leader not available",
	"connection closed",
	"dial tcp",
	"network exception",
}

var retryablePatterns = []string{
	"temporary",
	"request timed out",
	"not enough replicas",
	"offset out of range",
}

var nonRetryablePatterns = []string{
	"message too large",
	"invalid topic",
	"invalid partition",
	"unknown topic",
	"authorization failed",
}

func matches(err error, patterns []string) bool {
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

// IsConnectionError checks if a Kafka error is a connection-level error.
func IsConnectionError(err error) bool { return matches(err, connectionPatterns) }

// IsRetryableError determines if a Kafka error is transient.
func IsRetryableError(err error) bool {
	return IsConnectionError(err) || matches(err, retryablePatterns)
}

// IsNonRetryableError checks if the error is permanent for the topic.
func IsNonRetryableError(err error) bool { return matches(err, nonRetryablePatterns) }

// Translate converts a Kafka client error to an AppError carrying the topic.
// Context errors are returned unchanged so callers can still detect
// cancellation.
func Translate(err error, topic string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var appErr *apperrors.AppError
	switch {
	case IsConnectionError(err):
		appErr = apperrors.ConnectionFailed("kafka")
	case IsNonRetryableError(err):
		appErr = apperrors.InvalidInput("topic", "rejected by broker")
	case IsRetryableError(err):
		appErr = apperrors.New(apperrors.ErrCodeConnectionFailed, "transient kafka failure")
	default:
		appErr = apperrors.Internal(err)
	}
	return appErr.WithCause(err).WithDetail("topic", topic)
}
