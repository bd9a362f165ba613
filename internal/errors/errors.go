package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

/**
 * Custom error types for SlideAnalysis Worker
 *
 * Only unsupported/corrupt input is fatal for a job; every other failure in
 * the extraction pipeline degrades in place and surfaces as a warning.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Fatal errors - abort the whole job
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrorCorruptFile       ErrorCode = "CORRUPT_FILE"

	// Recoverable errors - trigger fallback rendering or best-effort results
	ErrorConversionTimeout ErrorCode = "CONVERSION_TIMEOUT"
	ErrorRenderFailure     ErrorCode = "RENDER_FAILURE"
	ErrorImageTooLarge     ErrorCode = "IMAGE_TOO_LARGE_AFTER_MAX_ATTEMPTS"

	// Housekeeping errors - logged, never affect the result
	ErrorTempCleanup ErrorCode = "TEMP_CLEANUP_FAILED"

	// Job-level errors
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"
	ErrorStorageFailed     ErrorCode = "STORAGE_FAILED"
)

// ProcessingError represents a structured processing error
type ProcessingError struct {
	Code      ErrorCode
	Message   string
	JobID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// IsFatal reports whether err must abort the whole job. Everything except
// unsupported or corrupt input degrades in place.
func IsFatal(err error) bool {
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return pe.Code == ErrorUnsupportedFormat || pe.Code == ErrorCorruptFile
	}
	return false
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// AsProcessingError extracts the structured error from err's chain.
func AsProcessingError(err error) (*ProcessingError, bool) {
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Factory functions for common errors

func NewUnsupportedFormatError(path string, extension string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorUnsupportedFormat,
		Message:   fmt.Sprintf("Unsupported file format: %s", extension),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"path":      path,
			"extension": extension,
		},
	}
}

func NewCorruptFileError(path string, reason string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorCorruptFile,
		Message:   fmt.Sprintf("File unreadable or structurally invalid: %s", reason),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"path": path,
		},
		Cause: cause,
	}
}

func NewConversionTimeoutError(path string, timeout time.Duration, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorConversionTimeout,
		Message:   fmt.Sprintf("Document conversion timed out after %v", timeout),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"path":             path,
			"timeout_duration": timeout.String(),
		},
		Cause: cause,
	}
}

func NewRenderFailureError(path string, reason string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorRenderFailure,
		Message:   fmt.Sprintf("Primary rendering failed: %s", reason),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"path": path,
		},
		Cause: cause,
	}
}

func NewImageTooLargeError(slideNumber int, encodedSize int, budget int) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorImageTooLarge,
		Message:   fmt.Sprintf("Slide %d still %d bytes after max recompression attempts (budget %d)", slideNumber, encodedSize, budget),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"slide_number": slideNumber,
			"encoded_size": encodedSize,
			"budget":       budget,
		},
	}
}

func NewTempCleanupError(dir string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorTempCleanup,
		Message:   fmt.Sprintf("Failed to remove temp workspace: %s", dir),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"workspace": dir,
		},
		Cause: cause,
	}
}

func NewProcessingTimeoutError(jobID string, duration time.Duration, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("Processing timed out after %v", duration),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

func NewStorageFailedError(jobID string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorStorageFailed,
		Message:   "Failed to store processing results",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// ToMap converts error to map for database storage
func (e *ProcessingError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
