package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeProvider      = "PROVIDER_ERROR"
	ErrCodeStorage       = "STORAGE_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyContent         = NewDomainError(ErrCodeValidation, "content cannot be empty")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmbeddingDimensions  = NewDomainError(ErrCodeValidation, fmt.Sprintf("embedding must have %d dimensions", EmbeddingDimensions))
	ErrNoOwnershipScope     = NewDomainError(ErrCodeValidation, "at least one of user or general content must be included")
)

// Provider errors
var (
	ErrEmbeddingFailed        = NewDomainError(ErrCodeProvider, "embedding provider call failed")
	ErrEmbeddingCountMismatch = NewDomainError(ErrCodeProvider, "embedding provider returned wrong number of vectors")
)

// Storage errors
var (
	ErrChunkInsertFailed = NewDomainError(ErrCodeStorage, "failed to store knowledge chunks")
	ErrChunkQueryFailed  = NewDomainError(ErrCodeStorage, "failed to query knowledge chunks")
)
