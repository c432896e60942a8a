package oracle

import "fmt"

// ErrorCode classifies an oracle failure.
type ErrorCode string

const (
	ErrUnavailable     ErrorCode = "ORACLE_UNAVAILABLE"
	ErrRateLimited     ErrorCode = "ORACLE_RATE_LIMITED"
	ErrBadResponse     ErrorCode = "ORACLE_BAD_RESPONSE"
	ErrAllModelsFailed ErrorCode = "ALL_MODELS_FAILED"
)

// ClassifyError is a structured error for oracle failures.
type ClassifyError struct {
	Code      ErrorCode
	Message   string
	Model     string
	Retryable bool
	Cause     error
}

func (e *ClassifyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ClassifyError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether this error is retryable.
func (e *ClassifyError) IsRetryable() bool {
	return e.Retryable
}
