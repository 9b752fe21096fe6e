package models

import (
	"errors"
	"fmt"
)

// Error kinds. Callers test with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrIndex              = errors.New("index out of range")
	ErrInvestmentNotFound = errors.New("investment not found")
	ErrQuoteUnavailable   = errors.New("quote unavailable")
	ErrRateUnavailable    = errors.New("reference rate unavailable")
	ErrPersistenceCorrupt = errors.New("stored snapshot is corrupt")
)

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IndexError reports a wallet or investment reference outside the sequence.
type IndexError struct {
	Kind  string // "wallet" or "investment"
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0,%d)", e.Kind, e.Index, e.Len)
}

// Is matches ErrIndex.
func (e *IndexError) Is(target error) bool {
	return target == ErrIndex
}
