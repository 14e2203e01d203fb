package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/samber/oops"
)

// Error kinds surfaced to callers. Every error returned by the coordinator
// matches exactly one of these through errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNoteNotFound = errors.New("note not found")
	ErrStorage      = errors.New("storage operation failed")
	ErrEmbedding    = errors.New("embedding generation failed")
)

// Common errors used throughout the application
var (
	// Validation errors
	ErrEmptyTitle        = errors.New("title cannot be empty")
	ErrEmptyContent      = errors.New("content cannot be empty")
	ErrEmptyQuery        = errors.New("query cannot be empty")
	ErrInvalidNoteID     = errors.New("invalid note ID")
	ErrInvalidRelation   = errors.New("invalid relation")
	ErrInvalidLimit      = errors.New("limit cannot be negative")
	ErrInvalidDimensions = errors.New("invalid vector dimensions")
	ErrInvalidBoolean    = errors.New("invalid boolean value (use true/false)")
	ErrUnknownConfigKey  = errors.New("unknown configuration key")

	// Embedding errors
	ErrInvalidEmbeddingLength = errors.New("invalid embedding data length")
	ErrDimensionMismatch      = errors.New("embedding dimension mismatch")
)

// Kind is the machine-readable class of an error.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindStorage    Kind = "storage"
	KindEmbedding  Kind = "embedding"
	KindInternal   Kind = "internal"
)

// Validation marks cause as bad caller input.
func Validation(cause error, kv ...any) error {
	if cause == nil {
		return nil
	}
	return oops.Code(KindValidation).With(kv...).Wrap(fmt.Errorf("%w: %w", ErrValidation, cause))
}

// NotFound reports a missing note.
func NotFound(id string) error {
	return oops.Code(KindNotFound).With("note_id", id).Wrap(fmt.Errorf("%w: %s", ErrNoteNotFound, id))
}

// Storage wraps a failure of either backing store. Errors that already carry
// a kind are returned unchanged.
func Storage(op string, cause error) error {
	if cause == nil {
		return nil
	}
	if KindOf(cause) != KindInternal {
		return cause
	}
	return oops.Code(KindStorage).With("op", op).Wrap(fmt.Errorf("%w: %s: %w", ErrStorage, op, cause))
}

// Embedding wraps a failure of the embedding provider.
func Embedding(provider string, cause error) error {
	if cause == nil {
		return nil
	}
	if KindOf(cause) != KindInternal {
		return cause
	}
	return oops.Code(KindEmbedding).With("provider", provider).Wrap(fmt.Errorf("%w: %s: %w", ErrEmbedding, provider, cause))
}

// KindOf classifies err by the sentinel it wraps.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNoteNotFound):
		return KindNotFound
	case errors.Is(err, ErrEmbedding):
		return KindEmbedding
	case errors.Is(err, ErrStorage):
		return KindStorage
	default:
		return KindInternal
	}
}

// Context returns the structured fields attached along the error chain.
func Context(err error) map[string]any {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Context()
	}
	return nil
}

// HTTPStatus maps an error to the status code the REST surface answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindEmbedding:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
