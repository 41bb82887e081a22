/*
Package generic provides the core age-standardisation engine.

PURPOSE:
  This package contains domain-agnostic types and algorithms for comparing
  mortality between populations. Whether the cause is COPD, stroke or all
  causes, the same engine reconciles age bands, joins the three source
  tables and aggregates crude and age-standardised rates.

KEY CONCEPTS IN THIS FILE (types.go):
  - AgeBand: A labelled age interval ("0-4", "85-89", "85+")
  - MortalityRecord: Death rate per 100,000 for one age band
  - StandardWeight: Standard population share (percent) for one age band
  - PopulationRecord: Population count (thousands) for one age band
  - JoinedRecord: One row of the reconciled, joined table
  - Statistics: The two scalars produced per population-of-interest

DESIGN PRINCIPLES:
  1. Immutability: Records are values, every stage returns a new slice
  2. Precision: Uses decimal.Decimal so band sums and rounding are exact
  3. Type Safety: Strong typing for bands and population ids
  4. Explicit failure: Defects are errors, never silent zeros

USAGE:
  p := generic.NewPipeline(generic.StandardTaxonomy())
  stats, err := p.Run(generic.PopulationInput{
      PopulationID: "uganda",
      Mortality:    mortality,
      Population:   generic.SelectPopulation(raw, "uganda", 2019),
  }, weights)

SEE ALSO:
  - taxonomy.go: Coarse and fine age-band taxonomies
  - reconcile.go: Fine -> coarse population reconciliation
  - join.go: Three-way join on age band
  - aggregate.go: Crude rate and ASDR
*/
package generic

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AGE BANDS
// =============================================================================

// AgeBand identifies a population age interval by its label.
type AgeBand string

// LowerBound returns the first age covered by the band.
// "5-9" -> 5, "85+" -> 85. Returns false for labels that are not age bands.
func (b AgeBand) LowerBound() (int, bool) {
	s := string(b)
	if i := strings.IndexAny(s, "-+"); i > 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// IsOpenEnded reports whether the band has no upper bound ("85+", "100+").
func (b AgeBand) IsOpenEnded() bool {
	return strings.HasSuffix(string(b), "+")
}

func (b AgeBand) String() string { return string(b) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

// PopulationID identifies a population-of-interest (a country, a region).
type PopulationID string

// =============================================================================
// RECORDS
// =============================================================================

// MortalityRecord is an age-specific death rate for one population.
type MortalityRecord struct {
	AgeBand   AgeBand
	DeathRate decimal.Decimal // deaths per 100,000 persons
}

// StandardWeight is the standard population's share of one age band.
// The weight table is shared by every population-of-interest.
type StandardWeight struct {
	AgeBand AgeBand
	Weight  decimal.Decimal // percent, ~100 across all bands
}

// PopulationRecord is a population count for one age band.
type PopulationRecord struct {
	PopulationID PopulationID
	AgeBand      AgeBand
	Count        decimal.Decimal // thousands of persons
}

// RawPopulationRecord is a row of the raw population table before it has
// been narrowed to one population and one reference year.
type RawPopulationRecord struct {
	PopulationID  PopulationID
	AgeBand       AgeBand
	ReferenceYear int
	Count         decimal.Decimal
}

// JoinedRecord is the per-band row produced by the joiner.
type JoinedRecord struct {
	AgeBand   AgeBand
	DeathRate decimal.Decimal
	Weight    decimal.Decimal
	Count     decimal.Decimal
}

// =============================================================================
// STATISTICS
// =============================================================================

// Statistics are the point estimates for one population-of-interest.
// CrudeDeathRate and ASDR are rounded; the Exact fields are not.
type Statistics struct {
	PopulationID   PopulationID
	CrudeDeathRate decimal.Decimal
	ASDR           decimal.Decimal

	ExactCrudeDeathRate decimal.Decimal
	ExactASDR           decimal.Decimal
	TotalDeaths         decimal.Decimal // estimated absolute deaths
	TotalPersons        decimal.Decimal // persons, not thousands
	Bands               int
}

// Result pairs a population with its statistics or the error that
// aborted its pipeline. Exactly one of Statistics and Err is meaningful.
type Result struct {
	PopulationID PopulationID
	Statistics   Statistics
	Err          error
}

// =============================================================================
// HELPERS
// =============================================================================

// MustParseDecimal parses s or panics. For constants and tests.
func MustParseDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SelectPopulation narrows raw rows to one population and one reference
// year. This is the caller-side filter the reconciler expects to have been
// applied; input order is preserved.
func SelectPopulation(raw []RawPopulationRecord, id PopulationID, year int) []PopulationRecord {
	var out []PopulationRecord
	for _, r := range raw {
		if r.PopulationID != id || r.ReferenceYear != year {
			continue
		}
		out = append(out, PopulationRecord{
			PopulationID: r.PopulationID,
			AgeBand:      r.AgeBand,
			Count:        r.Count,
		})
	}
	return out
}
