package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Build-time errors
const (
	// ErrCodeConfiguration indicates an invalid pipeline or step declaration.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"
	// ErrCodeInvalidInput indicates invalid arguments or documents.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeNotFound indicates a missing resource, operation or object.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Execution errors
const (
	// ErrCodeStepFailed indicates a step error that the error policy did not recover.
	ErrCodeStepFailed ErrorCode = "STEP_FAILED"
	// ErrCodeInvariant indicates a misbehaving step broke an engine invariant.
	ErrCodeInvariant ErrorCode = "INVARIANT_VIOLATION"
	// ErrCodeTimeout indicates the pipeline exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInterrupted indicates the caller cancelled the execution.
	ErrCodeInterrupted ErrorCode = "INTERRUPTED"
	// ErrCodeParkingFailed indicates a resource could not be moved to its parking target.
	ErrCodeParkingFailed ErrorCode = "PARKING_FAILED"
	// ErrCodeCollectorFailed indicates a windowed collector task did not shut down cleanly.
	ErrCodeCollectorFailed ErrorCode = "COLLECTOR_FAILED"
	// ErrCodeResultClosed indicates a write to a result that has already been stopped.
	ErrCodeResultClosed ErrorCode = "RESULT_CLOSED"
)

// Infrastructure errors (retryable)
const (
	// ErrCodeStorage indicates a storage backend failure.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
	// ErrCodeConnectionFailed indicates a failed connection to a backend.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeDatabaseError indicates a database error.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeStorage:          true,
	ErrCodeConnectionFailed: true,
	ErrCodeDatabaseError:    true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
