package clients

import (
	"errors"
	"fmt"

	"registrar/internal/registry/models"
	domainerrors "registrar/pkg/domain-errors"
)

// ErrorCategory is the normalized failure taxonomy for registry fetches.
type ErrorCategory string

const (
	// CategoryTimeout indicates the registry took too long to respond.
	CategoryTimeout ErrorCategory = "timeout"

	// CategoryBadData indicates the registry returned an unusable response.
	CategoryBadData ErrorCategory = "bad_data"

	// CategoryAuthentication indicates credential or permission issues.
	CategoryAuthentication ErrorCategory = "authentication"

	// CategoryOutage indicates the registry is unavailable.
	CategoryOutage ErrorCategory = "outage"

	// CategoryNotFound indicates the looked-up record does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryRateLimited indicates too many requests.
	CategoryRateLimited ErrorCategory = "rate_limited"

	// CategoryInternal indicates an unexpected internal error.
	CategoryInternal ErrorCategory = "internal"
)

// ClientError wraps registry fetch failures with normalized categorization.
type ClientError struct {
	Category   ErrorCategory
	Source     models.Source
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ClientError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("registry %s [%s]: %s: %v", e.Source, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("registry %s [%s]: %s", e.Source, e.Category, e.Message)
}

func (e *ClientError) Unwrap() error {
	return e.Underlying
}

// Code maps the category onto the domain error taxonomy.
func (e *ClientError) Code() domainerrors.Code {
	switch e.Category {
	case CategoryNotFound:
		return domainerrors.CodeNotFound
	case CategoryAuthentication:
		return domainerrors.CodeAuth
	case CategoryRateLimited:
		return domainerrors.CodeRateLimited
	case CategoryBadData:
		return domainerrors.CodeParse
	default:
		return domainerrors.CodeNetwork
	}
}

// NewClientError builds a normalized client error; timeouts, outages and rate
// limits are retryable.
func NewClientError(category ErrorCategory, source models.Source, message string, underlying error) *ClientError {
	retryable := category == CategoryTimeout ||
		category == CategoryOutage ||
		category == CategoryRateLimited

	return &ClientError{
		Category:   category,
		Source:     source,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// CategoryOf extracts the error category from an error.
func CategoryOf(err error) ErrorCategory {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return CategoryInternal
}
