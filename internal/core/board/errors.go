package board

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced task, sprint, or project does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when an entity fails validation before reaching a store.
	ErrValidation = errors.New("validation failed")
	// ErrPersistence is returned when a backend call fails (I/O, driver, serialization).
	ErrPersistence = errors.New("persistence failure")
)

// NotFound returns an error wrapping ErrNotFound for the given entity kind and id.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// Invalid wraps a validation error (usually criterio.FieldErrors) with ErrValidation.
// Both errors remain reachable through errors.Is and errors.As.
func Invalid(kind string, err error) error {
	return fmt.Errorf("invalid %s: %w: %w", kind, ErrValidation, err)
}

// Persistence wraps a backend failure with ErrPersistence. Errors that already
// classify as ErrNotFound or ErrPersistence are wrapped with context only.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrPersistence) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
