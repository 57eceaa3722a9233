package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainErrorPassesThrough(t *testing.T) {
	original := NewQuotaExceeded(3)
	mapped := ToDomainError(fmt.Errorf("wrapped: %w", original))
	if mapped.Code != "QUOTA_EXCEEDED" {
		t.Errorf("code = %s, want QUOTA_EXCEEDED", mapped.Code)
	}
	if mapped.HTTPStatus != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", mapped.HTTPStatus)
	}
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	mapped := ToDomainError(fmt.Errorf("query: %w", pgx.ErrNoRows))
	if mapped.Code != "NOT_FOUND" {
		t.Errorf("code = %s, want NOT_FOUND", mapped.Code)
	}
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	mapped := ToDomainError(errors.New("boom"))
	if mapped.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %s, want INTERNAL_ERROR", mapped.Code)
	}
	if mapped.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", mapped.HTTPStatus)
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewSelfUpvote())
	if !IsCode(err, "SELF_UPVOTE") {
		t.Error("IsCode must see through wrapping")
	}
	if IsCode(err, "DUPLICATE_UPVOTE") {
		t.Error("IsCode must match exactly")
	}
	if IsCode(nil, "SELF_UPVOTE") {
		t.Error("nil is no code")
	}
}
