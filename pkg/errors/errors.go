package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of failure in API responses and logs
type ErrorCode string

const (
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeTokenInvalid       ErrorCode = "INVALID_TOKEN"

	// Device login decisions
	ErrCodeDeviceLimitReached  ErrorCode = "DEVICE_LIMIT_REACHED"
	ErrCodeEmailDeliveryFailed ErrorCode = "EMAIL_DELIVERY_FAILED"
	ErrCodeOTPInvalid          ErrorCode = "OTP_INVALID"
)

var statusByCode = map[ErrorCode]int{
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeInvalidCredentials:  http.StatusUnauthorized,
	ErrCodeOTPInvalid:          http.StatusUnauthorized,
	ErrCodeForbidden:           http.StatusForbidden,
	ErrCodeTokenInvalid:        http.StatusForbidden,
	ErrCodeDeviceLimitReached:  http.StatusForbidden,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeRateLimitExceeded:   http.StatusTooManyRequests,
	ErrCodeEmailDeliveryFailed: http.StatusServiceUnavailable,
}

// Error carries a code and a message that is safe to show to the user.
// The wrapped cause is for logs only.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatusCode is the response status for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches code and message to err; a nil err stays nil
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// IsCode reports whether any *Error in err's chain has code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// GetCode returns the code of the first *Error in err's chain, or ErrCodeInternal
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// MapErrorCodeToHTTPStatus returns 500 for codes without a specific status
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func NotFound(resourceType, identifier string) *Error {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found: %s", resourceType, identifier))
}

func InvalidInput(field, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason))
}

func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}

// DeviceLimitReached is the login rejection for an account with no free device slot
func DeviceLimitReached() *Error {
	return New(ErrCodeDeviceLimitReached, "Device limit reached. Contact administrator.")
}

// EmailDeliveryFailed is the login rejection when the verification code could not be mailed
func EmailDeliveryFailed(err error) *Error {
	return Wrap(err, ErrCodeEmailDeliveryFailed,
		"We could not send the verification email at this time. Please contact the site administrator.")
}
