package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Device consistency
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeDeviceNotFound ErrorCode = "DEVICE_NOT_FOUND"
	ErrCodeTypeMismatch   ErrorCode = "TYPE_MISMATCH"

	// Subscription rules
	ErrCodeLimitExceeded        ErrorCode = "LIMIT_EXCEEDED"
	ErrCodeCooldown             ErrorCode = "COOLDOWN"
	ErrCodeAlreadySubscribed    ErrorCode = "ALREADY_SUBSCRIBED"
	ErrCodeCodeExpired          ErrorCode = "CODE_EXPIRED"
	ErrCodeCodeIncorrect        ErrorCode = "CODE_INCORRECT"
	ErrCodeNoActiveSubscription ErrorCode = "NO_ACTIVE_SUBSCRIPTION"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
	ErrCodeExternal ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors. Messages are user-facing and surfaced verbatim
// in the error_text field of the subscription API.

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(message string) *AppError {
	return New(ErrCodeInvalidInput, message)
}

func MissingRequired(message string) *AppError {
	return New(ErrCodeMissingRequired, message)
}

func DeviceNotFound() *AppError {
	return New(ErrCodeDeviceNotFound, "设备不存在")
}

func TypeMismatch() *AppError {
	return New(ErrCodeTypeMismatch, "绑定的设备和类型不一致")
}

func LimitExceeded() *AppError {
	return New(ErrCodeLimitExceeded, "该账号使用次数超过限制，不予注册")
}

func Cooldown(message string) *AppError {
	return New(ErrCodeCooldown, message)
}

func AlreadySubscribed() *AppError {
	return New(ErrCodeAlreadySubscribed, "请解绑当前设备")
}

func CodeExpired() *AppError {
	return New(ErrCodeCodeExpired, "验证码过期，请重新生成")
}

func CodeIncorrect(message string) *AppError {
	return New(ErrCodeCodeIncorrect, message)
}

func NoActiveSubscription(message string) *AppError {
	return New(ErrCodeNoActiveSubscription, message)
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "请求过于频繁，请稍后再试")
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func External(service string, cause error) *AppError {
	return Wrap(ErrCodeExternal, fmt.Sprintf("External service error: %s", service), cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
