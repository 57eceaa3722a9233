package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors. Code is the stable
// machine-readable kind exposed to callers.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewMissingIdentity() error {
	return NewDomainError("MISSING_IDENTITY", "caller identity required", http.StatusBadRequest, nil)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewAlreadyExists(resource string, details map[string]any) error {
	return NewDomainError("ALREADY_EXISTS", fmt.Sprintf("%s already exists", resource), http.StatusConflict, details)
}

func NewInvalidTransition(current, requested string) error {
	return NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("cannot transition from %s to %s", current, requested),
		http.StatusConflict,
		map[string]any{"current": current, "requested": requested})
}

func NewSelfUpvote() error {
	return NewDomainError("SELF_UPVOTE", "reporters cannot upvote their own issue", http.StatusConflict, nil)
}

func NewDuplicateUpvote() error {
	return NewDomainError("DUPLICATE_UPVOTE", "issue already upvoted by this user", http.StatusConflict, nil)
}

func NewAlreadyAssigned() error {
	return NewDomainError("ALREADY_ASSIGNED", "issue is already assigned", http.StatusConflict, nil)
}

func NewAlreadyBoosted() error {
	return NewDomainError("ALREADY_BOOSTED", "issue priority is already High", http.StatusConflict, nil)
}

func NewQuotaExceeded(limit int) error {
	return NewDomainError("QUOTA_EXCEEDED",
		fmt.Sprintf("free tier allows at most %d open issues", limit),
		http.StatusTooManyRequests,
		map[string]any{"limit": limit})
}

func NewStoreUnavailable(err error) error {
	return &DomainError{
		Code:       "STORE_UNAVAILABLE",
		Message:    "data store unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// IsCode reports whether err is a DomainError with the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
