package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrStateConflict     = errors.New("state conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
)

// ValidationError is raised when an entity input breaks an invariant.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StateConflictError is raised when an operation does not fit the aggregate's lifecycle state.
type StateConflictError struct {
	Message string
}

func (e *StateConflictError) Error() string { return e.Message }

func (e *StateConflictError) Is(target error) bool { return target == ErrStateConflict }

type InsufficientStockError struct {
	Title     string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for book '%s'. Available: %d, Requested: %d", e.Title, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock || target == ErrStateConflict
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a uniqueness clash such as a taken email or ISBN.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

func conflict(format string, args ...any) error {
	return &StateConflictError{Message: fmt.Sprintf(format, args...)}
}

func NewStateConflict(format string, args ...any) error {
	return conflict(format, args...)
}
