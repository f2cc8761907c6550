/*
errors.go - Centralized error types for the compliance engine

PURPOSE:
  All error types in one place. The engine degrades rather than fails for
  missing or malformed historical data; the errors here cover the few
  operations that are genuinely rejected.

ERROR CATEGORIES:
  1. Validation errors - the justification contract
  2. Store errors      - write-once violations and missing records

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, compliance.ErrJustificationRequired) {
        // prompt the user for a reason and retry
    }

SEE ALSO:
  - tolerance.go: produces JustificationError
  - store/sqlite: produces ErrDuplicateReading / ErrNotFound
*/
package compliance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrJustificationRequired is returned when an out-of-range value is
	// proposed without a non-empty reason. Surfaced to the end user as a
	// prompt, never silently accepted or downgraded.
	ErrJustificationRequired = errors.New("justification required")

	// ErrDuplicateReading is returned by the persistence layer when a
	// reading for the same (target, checkpoint, day) already exists. The
	// first successful write is authoritative.
	ErrDuplicateReading = errors.New("duplicate reading for target, checkpoint and day")

	// ErrReadingLocked is returned on any attempt to rewrite a committed
	// reading. Readings are write-once.
	ErrReadingLocked = errors.New("reading is locked")

	// ErrNotFound is returned when a directly requested record is absent.
	// Historical lookups inside the engine never use it; they degrade to
	// placeholder labels instead.
	ErrNotFound = errors.New("record not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// JustificationError reports the out-of-range proposal that was rejected.
type JustificationError struct {
	TargetID       string
	CheckpointName string
	Value          decimal.Decimal
	Band           Band
}

func (e *JustificationError) Error() string {
	return fmt.Sprintf("value %v outside band %v..%v for %s/%s: justification required",
		e.Value, e.Band.Min, e.Band.Max, e.TargetID, e.CheckpointName)
}

func (e *JustificationError) Unwrap() error { return ErrJustificationRequired }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrJustificationRequired) ||
		errors.Is(err, ErrDuplicateReading) ||
		errors.Is(err, ErrReadingLocked)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func hasText(s string) bool { return strings.TrimSpace(s) != "" }
