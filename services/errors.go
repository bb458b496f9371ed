package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
)

// ErrorCode identifies a specific failure within a category
type ErrorCode string

const (
	CodeInvalidCredentials     ErrorCode = "invalid_credentials"
	CodeUnknownSubject         ErrorCode = "unknown_subject"
	CodeCredentialExpired      ErrorCode = "credential_expired"
	CodeCredentialMalformed    ErrorCode = "credential_malformed"
	CodeInsufficientPermission ErrorCode = "insufficient_permission"
	CodeConfigurationMissing   ErrorCode = "configuration_missing"
	CodeCacheCapacityRace      ErrorCode = "cache_capacity_race"
	CodeUserNotFound           ErrorCode = "user_not_found"
	CodeRoleNotFound           ErrorCode = "role_not_found"
	CodeReceiptNotFound        ErrorCode = "receipt_not_found"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Code    ErrorCode
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. A target without a code matches the whole category.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if e.Type != t.Type {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// WithDetail returns a copy of the error carrying an extra detail.
// The receiver is left untouched so package-level sentinels stay immutable.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	clone := *e
	clone.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return &clone
}

// Wrap returns a copy of the error with err as its cause
func (e *DomainError) Wrap(err error) *DomainError {
	clone := *e
	clone.Err = err
	return &clone
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// NewCodedError creates a domain error with a specific code
func NewCodedError(errType ErrorType, code ErrorCode, message string) *DomainError {
	e := NewDomainError(errType, message, nil)
	e.Code = code
	return e
}

// Domain error variables

var (
	// Not Found Errors
	ErrUserNotFound    = NewCodedError(ErrorTypeNotFound, CodeUserNotFound, "user not found")
	ErrRoleNotFound    = NewCodedError(ErrorTypeNotFound, CodeRoleNotFound, "role not found")
	ErrReceiptNotFound = NewCodedError(ErrorTypeNotFound, CodeReceiptNotFound, "receipt not found")

	// Validation Errors
	ErrInvalidInput   = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrInvalidWidth   = NewDomainError(ErrorTypeValidation, "width must be between 20 and 100", nil)
	ErrInvalidGrant   = NewDomainError(ErrorTypeValidation, "invalid grant", nil)
	ErrInvalidPayment = NewDomainError(ErrorTypeValidation, "payment does not cover the total", nil)

	// Authentication Errors
	ErrUnauthorized        = NewDomainError(ErrorTypeUnauthorized, "not authenticated", nil)
	ErrInvalidCredentials  = NewCodedError(ErrorTypeUnauthorized, CodeInvalidCredentials, "incorrect login or password")
	ErrUnknownSubject      = NewCodedError(ErrorTypeUnauthorized, CodeUnknownSubject, "incorrect login or password")
	ErrCredentialExpired   = NewCodedError(ErrorTypeUnauthorized, CodeCredentialExpired, "token has expired")
	ErrCredentialMalformed = NewCodedError(ErrorTypeForbidden, CodeCredentialMalformed, "could not validate credentials")

	// Permission Errors
	ErrForbidden              = NewDomainError(ErrorTypeForbidden, "access forbidden", nil)
	ErrInsufficientPermission = NewCodedError(ErrorTypeForbidden, CodeInsufficientPermission, "insufficient permissions")

	// Conflict Errors
	ErrDuplicateLogin   = NewDomainError(ErrorTypeConflict, "login already exists", nil)
	ErrConcurrentUpdate = NewDomainError(ErrorTypeConflict, "concurrent update detected", nil)

	// Internal Errors
	ErrInternal             = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError        = NewDomainError(ErrorTypeInternal, "database error", nil)
	ErrTransactionFailed    = NewDomainError(ErrorTypeInternal, "transaction failed", nil)
	ErrCacheFailed          = NewDomainError(ErrorTypeInternal, "cache operation failed", nil)
	ErrConfigurationMissing = NewCodedError(ErrorTypeInternal, CodeConfigurationMissing, "required configuration is missing")
	ErrCacheCapacityRace    = NewCodedError(ErrorTypeInternal, CodeCacheCapacityRace, "render cache capacity race")
	ErrRenderFailed         = NewDomainError(ErrorTypeInternal, "receipt rendering failed", nil)
)

// NewInsufficientPermissionError names the grant the request would have needed
func NewInsufficientPermissionError(required string) *DomainError {
	e := ErrInsufficientPermission.WithDetail("required", required)
	e.Message = fmt.Sprintf("insufficient permissions: %s required", required)
	return e
}

// NewConfigurationMissingError names the absent configuration key
func NewConfigurationMissingError(key string, cause error) *DomainError {
	e := ErrConfigurationMissing.WithDetail("key", key).Wrap(cause)
	e.Message = fmt.Sprintf("required configuration %q is missing", key)
	return e
}

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return GetErrorType(err) == ErrorTypeForbidden
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// IsExpiredCredentialError checks if an error reports an expired token
func IsExpiredCredentialError(err error) bool {
	return GetErrorCode(err) == CodeCredentialExpired
}

// IsMalformedCredentialError checks if an error reports a forged or unreadable token
func IsMalformedCredentialError(err error) bool {
	return GetErrorCode(err) == CodeCredentialMalformed
}

// IsConfigurationMissingError checks if an error reports an absent runtime setting
func IsConfigurationMissingError(err error) bool {
	return GetErrorCode(err) == CodeConfigurationMissing
}

// IsCacheCapacityRaceError checks if an error reports a lost cache eviction race
func IsCacheCapacityRaceError(err error) bool {
	return GetErrorCode(err) == CodeCacheCapacityRace
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorCode returns the ErrorCode of a domain error, or empty string
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
