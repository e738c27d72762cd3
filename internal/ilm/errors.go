package ilm

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced to callers. Match with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrConstraintViolation    = errors.New("constraint violation")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrValidationFailure      = errors.New("validation failure")
)

var (
	// ErrSlugExhausted means every slug candidate, including the time-based
	// fallback, was already reserved. Callers may retry the request.
	ErrSlugExhausted = fmt.Errorf("%w: slug candidates exhausted", ErrConstraintViolation)

	// ErrSlugImmutable is returned when a caller tries to change the slug of a
	// persisted node.
	ErrSlugImmutable = fmt.Errorf("%w: slug is immutable", ErrConstraintViolation)

	// ErrUnsupported is returned by backends that do not implement an optional
	// capability (for example database snapshots on Postgres).
	ErrUnsupported = errors.New("unsupported by backend")
)

// Store-level signals. These are handled inside the service and are not
// returned to callers unwrapped.
var (
	// ErrRevisionConflict is returned by a Store when a guarded write finds a
	// revision other than the expected one.
	ErrRevisionConflict = errors.New("revision conflict")

	// ErrSlugTaken is returned by a Store when a node insert violates slug
	// uniqueness.
	ErrSlugTaken = errors.New("slug taken")
)

// Retryable reports whether the failed request may succeed if issued again.
func Retryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrSlugExhausted)
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func constraint(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConstraintViolation, fmt.Sprintf(format, args...))
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidationFailure, fmt.Sprintf(format, args...))
}
