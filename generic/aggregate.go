/*
aggregate.go - Crude death rate and age-standardised death rate

FORMULAS:
  Rates are per 100,000 persons, populations are in thousands.

  deaths_i      = rate_i * count_i / 100        (per-100k rate x thousands)
  total_deaths  = Σ deaths_i
  total_persons = Σ count_i * 1000
  crude         = total_deaths / total_persons * 100000

  asdr          = Σ rate_i * weight_i / 100     (weight_i in percent)

ROUNDING:
  Both results are rounded to Places decimals (default 1). RoundHalfUp
  rounds half away from zero (decimal.Round); RoundHalfEven is banker's
  rounding (decimal.RoundBank). Unrounded values are kept on Statistics.

FAILURE:
  No rows is ErrEmptyInput, never 0. A zero total population cannot carry
  a crude rate and is ErrInvalidValue. Zero death rates are valid.
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundingMode selects how statistics are rounded.
type RoundingMode string

const (
	RoundHalfUp   RoundingMode = "half_up"
	RoundHalfEven RoundingMode = "half_even"
)

// ParseRoundingMode accepts "half_up", "half_even" or "" (half_up).
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch RoundingMode(s) {
	case "", RoundHalfUp:
		return RoundHalfUp, nil
	case RoundHalfEven:
		return RoundHalfEven, nil
	}
	return "", fmt.Errorf("unknown rounding mode %q", s)
}

var (
	hundred         = decimal.NewFromInt(100)
	thousand        = decimal.NewFromInt(1000)
	hundredThousand = decimal.NewFromInt(100000)
)

// Aggregator computes crude and age-standardised rates from joined rows.
type Aggregator struct {
	Places   int32
	Rounding RoundingMode
}

// NewAggregator returns an aggregator rounding half-up to one decimal.
func NewAggregator() Aggregator {
	return Aggregator{Places: 1, Rounding: RoundHalfUp}
}

// Aggregate computes both statistics. PopulationID on the result is left
// for the caller to set.
func (a Aggregator) Aggregate(rows []JoinedRecord) (Statistics, error) {
	if len(rows) == 0 {
		return Statistics{}, ErrEmptyInput
	}

	deaths := decimal.Zero
	count := decimal.Zero
	asdr := decimal.Zero
	for _, r := range rows {
		if err := checkRow(r); err != nil {
			return Statistics{}, err
		}
		deaths = deaths.Add(r.DeathRate.Mul(r.Count).Div(hundred))
		count = count.Add(r.Count)
		asdr = asdr.Add(r.DeathRate.Mul(r.Weight).Div(hundred))
	}

	persons := count.Mul(thousand)
	if persons.IsZero() {
		return Statistics{}, &InvalidValueError{
			Field:  "population_count",
			Value:  persons,
			Reason: "total population is zero",
		}
	}
	// Scale before dividing; the quotient is cut to DivisionPrecision places.
	crude := deaths.Mul(hundredThousand).Div(persons)

	return Statistics{
		CrudeDeathRate:      a.round(crude),
		ASDR:                a.round(asdr),
		ExactCrudeDeathRate: crude,
		ExactASDR:           asdr,
		TotalDeaths:         deaths,
		TotalPersons:        persons,
		Bands:               len(rows),
	}, nil
}

func (a Aggregator) round(d decimal.Decimal) decimal.Decimal {
	if a.Rounding == RoundHalfEven {
		return d.RoundBank(a.Places)
	}
	return d.Round(a.Places)
}

func checkRow(r JoinedRecord) error {
	switch {
	case r.DeathRate.IsNegative():
		return &InvalidValueError{Field: "death_rate", AgeBand: r.AgeBand, Value: r.DeathRate}
	case r.Weight.IsNegative():
		return &InvalidValueError{Field: "weight", AgeBand: r.AgeBand, Value: r.Weight}
	case r.Count.IsNegative():
		return &InvalidValueError{Field: "population_count", AgeBand: r.AgeBand, Value: r.Count}
	}
	return nil
}
