package exdock

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeExecution  ErrorType = "execution"
)

// Stable error codes surfaced to callers of the dispatcher operations.
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeDuplicateKey      = "DUPLICATE_KEY"
	ErrCodeInvalidDefinition = "INVALID_DEFINITION"
	ErrCodeAttributeInUse    = "ATTRIBUTE_IN_USE"
	ErrCodeTypeMismatch      = "TYPE_MISMATCH"
	ErrCodeScopeMismatch     = "SCOPE_MISMATCH"
	ErrCodeUnknownOption     = "UNKNOWN_OPTION"
	ErrCodeOptionInUse       = "OPTION_IN_USE"
	ErrCodeStoreFailure      = "STORE_FAILURE"
	ErrCodeUnknownOperation  = "UNKNOWN_OPERATION"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeUnknownCacheKey   = "UNKNOWN_CACHE_KEY"
)

// ExDockError is the unified structured error returned across component
// boundaries. Every operation failure carries a stable Code; the Cause (if
// any) is the wrapped lower-level error and is never shown to end users.
type ExDockError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Key     string         `json:"key,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *ExDockError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("[%s:%s] attribute '%s': %s", e.Type, e.Code, e.Key, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *ExDockError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to the error.
func (e *ExDockError) WithDetail(key string, value any) *ExDockError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause attaches the underlying error.
func (e *ExDockError) WithCause(cause error) *ExDockError {
	e.Cause = cause
	return e
}

// WithKey attaches the attribute key the operation targeted.
func (e *ExDockError) WithKey(key string) *ExDockError {
	e.Key = key
	return e
}

func NewNotFoundError(message string) *ExDockError {
	return &ExDockError{Type: ErrorTypeNotFound, Code: ErrCodeNotFound, Message: message}
}

func NewDuplicateKeyError(key string) *ExDockError {
	return &ExDockError{Type: ErrorTypeConflict, Code: ErrCodeDuplicateKey, Message: "attribute key already defined", Key: key}
}

func NewInvalidDefinitionError(message string) *ExDockError {
	return &ExDockError{Type: ErrorTypeValidation, Code: ErrCodeInvalidDefinition, Message: message}
}

func NewAttributeInUseError(key string) *ExDockError {
	return &ExDockError{Type: ErrorTypeConflict, Code: ErrCodeAttributeInUse, Message: "attribute is referenced by stored values", Key: key}
}

func NewTypeMismatchError(message string) *ExDockError {
	return &ExDockError{Type: ErrorTypeValidation, Code: ErrCodeTypeMismatch, Message: message}
}

func NewScopeMismatchError(message string) *ExDockError {
	return &ExDockError{Type: ErrorTypeValidation, Code: ErrCodeScopeMismatch, Message: message}
}

func NewUnknownOptionError(key string, option int32) *ExDockError {
	e := &ExDockError{Type: ErrorTypeValidation, Code: ErrCodeUnknownOption, Message: "option is not defined for attribute", Key: key}
	return e.WithDetail("option", option)
}

func NewOptionInUseError(key string, option int32) *ExDockError {
	e := &ExDockError{Type: ErrorTypeConflict, Code: ErrCodeOptionInUse, Message: "option is referenced by stored values", Key: key}
	return e.WithDetail("option", option)
}

// NewStoreFailureError wraps a datastore error. The intent string names the
// failing statement's purpose; credentials and raw SQL never appear here.
func NewStoreFailureError(intent string, cause error) *ExDockError {
	e := &ExDockError{Type: ErrorTypeExecution, Code: ErrCodeStoreFailure, Message: intent}
	return e.WithCause(cause)
}

func NewUnknownOperationError(op string) *ExDockError {
	e := &ExDockError{Type: ErrorTypeNotFound, Code: ErrCodeUnknownOperation, Message: "no handler registered for operation"}
	return e.WithDetail("operation", op)
}

func NewBadRequestError(message string) *ExDockError {
	return &ExDockError{Type: ErrorTypeValidation, Code: ErrCodeBadRequest, Message: message}
}

func NewUnknownCacheKeyError(domain string) *ExDockError {
	e := &ExDockError{Type: ErrorTypeNotFound, Code: ErrCodeUnknownCacheKey, Message: "no cache domain registered under this key"}
	return e.WithDetail("domain", domain)
}

// CodeOf extracts the stable error code, or empty string for foreign errors.
func CodeOf(err error) string {
	var e *ExDockError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given stable code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}
