/*
errors.go - Centralized error types for the generic engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages should wrap these errors with additional context.

ERROR CATEGORIES:
  1. Pipeline errors - Schema, join, empty input and value violations
  2. Table errors - Missing tables or columns, unparsable cells
  3. Lookup errors - Unknown populations

USAGE:
  Callers branch on the sentinel, not on the concrete type:

    if errors.Is(err, generic.ErrJoinIncomplete) {
        var je *generic.JoinIncompleteError
        errors.As(err, &je)
        log.Printf("missing bands: %v", je.Missing)
    }

SEE ALSO:
  - reconcile.go, join.go, aggregate.go: Produce pipeline errors
  - table.go: Produces table errors
  - api/handlers.go: Maps errors to HTTP status codes
*/
package generic

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
	// ErrSchemaMismatch is returned when raw population bands cannot be
	// mapped onto the coarse taxonomy (missing, unexpected or repeated bands).
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrJoinIncomplete is returned when the join does not yield exactly one
	// row per coarse age band.
	ErrJoinIncomplete = errors.New("join incomplete")

	// ErrEmptyInput is returned when aggregation is invoked without rows.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidValue is returned for negative rates, weights or counts.
	ErrInvalidValue = errors.New("invalid value")

	// ErrTableNotFound is returned when a table source has no table by that name.
	ErrTableNotFound = errors.New("table not found")

	// ErrColumnNotFound is returned when a table lacks a required column.
	ErrColumnNotFound = errors.New("column not found")

	// ErrPopulationNotFound is returned for an unknown population id.
	ErrPopulationNotFound = errors.New("population not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SchemaMismatchError describes why fine bands could not be reconciled.
type SchemaMismatchError struct {
	PopulationID PopulationID
	Missing      []AgeBand // expected but absent
	Unexpected   []AgeBand // present but not part of either taxonomy
	Duplicate    []AgeBand // present more than once
	Reason       string
}

func (e *SchemaMismatchError) Error() string {
	parts := []string{"schema mismatch"}
	if e.PopulationID != "" {
		parts[0] += fmt.Sprintf(" for %s", e.PopulationID)
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing %v", e.Missing))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected %v", e.Unexpected))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate %v", e.Duplicate))
	}
	return strings.Join(parts, ": ")
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// JoinIncompleteError names the side of the join that is defective.
type JoinIncompleteError struct {
	Side      string // "mortality", "weights" or "population"
	Missing   []AgeBand
	Duplicate []AgeBand
	Extra     []AgeBand // bands outside the taxonomy
	Rows      int
	Expected  int
}

func (e *JoinIncompleteError) Error() string {
	msg := fmt.Sprintf("join incomplete: %d of %d rows", e.Rows, e.Expected)
	if e.Side != "" {
		msg += fmt.Sprintf(" (%s)", e.Side)
	}
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf(": missing %v", e.Missing)
	}
	if len(e.Duplicate) > 0 {
		msg += fmt.Sprintf(": duplicate %v", e.Duplicate)
	}
	if len(e.Extra) > 0 {
		msg += fmt.Sprintf(": unknown %v", e.Extra)
	}
	return msg
}

func (e *JoinIncompleteError) Unwrap() error {
	return ErrJoinIncomplete
}

// InvalidValueError reports a value outside the numeric domain.
type InvalidValueError struct {
	Field   string // "death_rate", "weight", "population_count"
	AgeBand AgeBand
	Value   decimal.Decimal
	Reason  string
}

func (e *InvalidValueError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "must not be negative"
	}
	if e.AgeBand == "" {
		return fmt.Sprintf("invalid %s %s: %s", e.Field, e.Value, reason)
	}
	return fmt.Sprintf("invalid %s %s for band %s: %s", e.Field, e.Value, e.AgeBand, reason)
}

func (e *InvalidValueError) Unwrap() error {
	return ErrInvalidValue
}

// ColumnError reports a missing column or an unparsable cell.
type ColumnError struct {
	Table  string
	Column string
	Row    int // 1-based data row, 0 when the column itself is missing
	Value  string
	Err    error
}

func (e *ColumnError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("table %q: column %q not found", e.Table, e.Column)
	}
	return fmt.Sprintf("table %q: column %q row %d: cannot parse %q: %v",
		e.Table, e.Column, e.Row, e.Value, e.Err)
}

func (e *ColumnError) Unwrap() error {
	if e.Row == 0 {
		return ErrColumnNotFound
	}
	return ErrInvalidValue
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to defective input data.
func IsClientError(err error) bool {
	return errors.Is(err, ErrSchemaMismatch) ||
		errors.Is(err, ErrJoinIncomplete) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrColumnNotFound)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTableNotFound) ||
		errors.Is(err, ErrPopulationNotFound)
}
