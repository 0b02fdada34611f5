package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Statistical outcome classes. Callers absorb these locally; none is fatal.
	ErrInsufficientData    = errors.New("insufficient data for analysis")
	ErrResampleCapExceeded = errors.New("sample exceeds resampling cap")
	ErrMalformedRecord     = errors.New("malformed record")

	// Lookup errors
	ErrNotFound        = errors.New("resource not found")
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
)

// NewInsufficientDataError reports how many observations a test needed.
func NewInsufficientDataError(test string, have, need int) error {
	return fmt.Errorf("%w: %s has %d observations, needs %d", ErrInsufficientData, test, have, need)
}

// NewMalformedRecordError describes the offending field of a record.
func NewMalformedRecordError(record, field, reason string) error {
	return fmt.Errorf("%w: %s.%s %s", ErrMalformedRecord, record, field, reason)
}

// NewResampleCapError reports a resampling request above the configured cap.
func NewResampleCapError(n, limit int) error {
	return fmt.Errorf("%w: n=%d > cap=%d", ErrResampleCapExceeded, n, limit)
}

// Error checking helpers
func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

func IsMalformedRecord(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}

// IsAbsorbable reports whether err belongs to a class the analysis layers turn
// into an absent result instead of propagating.
func IsAbsorbable(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrResampleCapExceeded)
}
