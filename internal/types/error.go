package types

import (
	"errors"
	"fmt"
)

// Domain error classes. Services wrap these with context using %w and
// handlers map them to HTTP statuses with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("invalid input")
)

// NotFound wraps ErrNotFound with the missing entity and id
func NotFound(entity string, id uint64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

// Conflict wraps ErrConflict with a reason
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Invalid wraps ErrValidation with a reason
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}
