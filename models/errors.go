package models

import (
	"errors"
	"fmt"
)

// Error codes used in CLI diagnostics, API responses and internal error handling.
const (
	ErrCodeLaunch            = "LAUNCH_FAILED"
	ErrCodeNavigation        = "NAVIGATION_FAILED"
	ErrCodeNavigationTimeout = "NAVIGATION_TIMEOUT"
	ErrCodeExtraction        = "EXTRACTION_FAILED"
	ErrCodeWrite             = "WRITE_FAILED"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeBusy              = "CAPTURE_BUSY"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CaptureError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type CaptureError struct {
	Code    string
	Message string
	Err     error // underlying cause
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// NewCaptureError creates a new CaptureError.
func NewCaptureError(code, message string, err error) *CaptureError {
	return &CaptureError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *CaptureError) ToDetail() *ErrorDetail {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return &ErrorDetail{Code: e.Code, Message: msg}
}

// CodeOf returns the code of the first CaptureError in err's chain,
// ErrCodeInternal for any other non-nil error and "" for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternal
}

// IsLaunch reports whether err is a browser launch failure.
func IsLaunch(err error) bool { return CodeOf(err) == ErrCodeLaunch }

// IsNavigation reports whether err is a navigation failure, including timeouts.
func IsNavigation(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeNavigation || code == ErrCodeNavigationTimeout
}

// IsExtraction reports whether err is a content extraction failure.
func IsExtraction(err error) bool { return CodeOf(err) == ErrCodeExtraction }

// IsWrite reports whether err is a snapshot write failure.
func IsWrite(err error) bool { return CodeOf(err) == ErrCodeWrite }
