// Package businessflow contains the core business logic and use cases for link shortening workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Customer-related errors
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCaptcha     = errors.New("captcha verification failed")

	// Link-related errors
	ErrInvalidDestination = errors.New("destination URL is invalid")
	ErrInvalidCustomCode  = errors.New("custom code is invalid")
	ErrCodeConflict       = errors.New("short code already taken")
	ErrLinkNotFound       = errors.New("short link not found")
	ErrLinkAccessDenied   = errors.New("short link access denied")
	ErrLinkLimitExceeded  = errors.New("link limit reached for current plan")
	ErrBackend            = errors.New("backend failure")

	// Storage errors
	ErrCacheNotAvailable = errors.New("cache not available")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

// Stable error codes carried on BusinessError and surfaced in API responses
const (
	ErrCodeInvalidDestination = "INVALID_DESTINATION"
	ErrCodeInvalidCustomCode  = "INVALID_CUSTOM_CODE"
	ErrCodeCodeConflict       = "CODE_CONFLICT"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeBackendError       = "BACKEND_ERROR"
	ErrCodeLinkLimitExceeded  = "LINK_LIMIT_EXCEEDED"
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCustomerNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsInvalidCaptcha(err error) bool {
	return errors.Is(err, ErrInvalidCaptcha)
}

func IsInvalidDestination(err error) bool {
	return errors.Is(err, ErrInvalidDestination)
}

func IsInvalidCustomCode(err error) bool {
	return errors.Is(err, ErrInvalidCustomCode)
}

func IsCodeConflict(err error) bool {
	return errors.Is(err, ErrCodeConflict)
}

func IsLinkNotFound(err error) bool {
	return errors.Is(err, ErrLinkNotFound)
}

func IsLinkAccessDenied(err error) bool {
	return errors.Is(err, ErrLinkAccessDenied)
}

func IsLinkLimitExceeded(err error) bool {
	return errors.Is(err, ErrLinkLimitExceeded)
}

func IsBackendError(err error) bool {
	return errors.Is(err, ErrBackend)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}
