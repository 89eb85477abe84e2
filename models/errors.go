package models

import (
	"context"
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeSession      = "SESSION_FAILED"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeLoginTimeout = "LOGIN_TIMEOUT"
	ErrCodeLoginFailed  = "LOGIN_FAILED"

	ErrCodeExtractTimeout = "EXTRACT_TIMEOUT"
	ErrCodeExtractEmpty   = "EXTRACT_EMPTY"
	ErrCodeExtractFailed  = "EXTRACT_FAILED"

	ErrCodePersistence  = "PERSISTENCE_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Step    string `json:"step,omitempty"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Step    LoginStep // set for login failures only
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	prefix := e.Code
	if e.Step != "" {
		prefix += " [" + string(e.Step) + "]"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// NewLoginError creates a login failure for step. A deadline in the chain
// makes it a LOGIN_TIMEOUT, anything else is LOGIN_FAILED.
func NewLoginError(step LoginStep, message string, err error) *ScrapeError {
	code := ErrCodeLoginFailed
	if errors.Is(err, context.DeadlineExceeded) {
		code = ErrCodeLoginTimeout
	}
	return &ScrapeError{Code: code, Step: step, Message: message, Err: err}
}

// IsLoginTimeout reports whether err is a login timeout at step.
func IsLoginTimeout(err error, step LoginStep) bool {
	var se *ScrapeError
	return errors.As(err, &se) && se.Code == ErrCodeLoginTimeout && se.Step == step
}

// CodeOf returns the code of the first ScrapeError in err's chain, or
// ErrCodeInternal.
func CodeOf(err error) string {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message, Step: string(e.Step)}
}
