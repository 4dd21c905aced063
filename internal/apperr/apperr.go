// Package apperr holds the error categories shared by every domain package.
// Domain sentinels wrap one of these so a caller can branch either on the
// precise condition or on its category.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not found")
	ErrInfrastructure = errors.New("infrastructure failure")
)

// Validation returns a new error in the validation category.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Conflict returns a new error in the conflict category.
func Conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

// NotFound returns a new error in the not-found category.
func NotFound(msg string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, msg)
}

// Infra wraps a store or provider failure. Both ErrInfrastructure and the
// cause remain reachable through errors.Is / errors.As.
func Infra(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrInfrastructure, op, err)
}

// IsInfra reports whether err belongs to the infrastructure category.
func IsInfra(err error) bool {
	return errors.Is(err, ErrInfrastructure)
}
