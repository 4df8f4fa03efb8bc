package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across packages.
var (
	// ErrNilDependency is returned by constructors that receive a nil collaborator.
	ErrNilDependency = errors.New("nil dependency")

	// ErrLockHeld is returned when another indexing run holds the archive lock.
	ErrLockHeld = errors.New("indexing lock held by another process")

	// ErrZeroYield is returned when a document produces no qualifying chunks.
	ErrZeroYield = errors.New("document yielded no chunks")
)

// PipelineError is the structured error type for theoindex.
// It carries enough context for logging, the event stream, and user
// presentation without re-parsing error strings downstream.
type PipelineError struct {
	// Code is the unique error code (e.g., "ERR_202_EXTRACT_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Extract, Embed, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
func (e *PipelineError) Is(target error) bool {
	if t, ok := target.(*PipelineError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *PipelineError) WithDetail(key, value string) *PipelineError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *PipelineError) WithSuggestion(suggestion string) *PipelineError {
	e.Suggestion = suggestion
	return e
}

// New creates a new PipelineError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *PipelineError {
	return &PipelineError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a PipelineError from an existing error.
// The error's message becomes the PipelineError message.
func Wrap(code string, err error) *PipelineError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ExtractError creates a file-level extraction error (skip file, continue batch).
func ExtractError(message string, cause error) *PipelineError {
	return New(ErrCodeExtractFailed, message, cause)
}

// EmbedError creates an embedder error. Embedder errors abort the current
// file; recovery is an idempotent re-run.
func EmbedError(message string, cause error) *PipelineError {
	return New(ErrCodeEmbedFailed, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *PipelineError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *PipelineError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors abort the whole indexing run, not just the current file.
func IsFatal(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a PipelineError.
// Returns empty string if the chain contains no PipelineError.
func GetCode(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// GetCategory extracts the category from a PipelineError.
func GetCategory(err error) Category {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ""
}
