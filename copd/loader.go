package copd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/copd-rates/generic"
)

// LoadMortality reads one population's age-specific death rates from the
// combined mortality table.
func LoadMortality(t *generic.Table, cols Columns, p Population) ([]generic.MortalityRecord, error) {
	ageCol, err := firstColumn(t, cols.MortalityAgeBand)
	if err != nil {
		return nil, err
	}
	bands, err := t.Strings(ageCol)
	if err != nil {
		return nil, err
	}
	rates, err := t.Decimals(p.MortalityColumn)
	if err != nil {
		return nil, fmt.Errorf("mortality for %s: %w", p.ID, err)
	}

	out := make([]generic.MortalityRecord, len(bands))
	for i := range bands {
		out[i] = generic.MortalityRecord{AgeBand: generic.AgeBand(bands[i]), DeathRate: rates[i]}
	}
	return out, nil
}

// LoadWeights reads the standard population table.
func LoadWeights(t *generic.Table, cols Columns) ([]generic.StandardWeight, error) {
	bands, err := t.Strings(cols.WeightAgeBand)
	if err != nil {
		return nil, err
	}
	weights, err := t.Decimals(cols.Weight)
	if err != nil {
		return nil, err
	}

	out := make([]generic.StandardWeight, len(bands))
	for i := range bands {
		out[i] = generic.StandardWeight{AgeBand: generic.AgeBand(bands[i]), Weight: weights[i]}
	}
	return out, nil
}

// LoadPopulation projects the raw population table onto the rows of the
// study's populations. Rows for other locations are skipped without being
// parsed; the reference year is NOT filtered here (see
// generic.SelectPopulation).
func LoadPopulation(t *generic.Table, cols Columns, pops []Population) ([]generic.RawPopulationRecord, error) {
	byLocation := make(map[string]generic.PopulationID, len(pops))
	for _, p := range pops {
		byLocation[p.Location] = p.ID
	}

	locations, err := t.Strings(cols.PopulationLocation)
	if err != nil {
		return nil, err
	}
	years, err := t.Strings(cols.PopulationYear)
	if err != nil {
		return nil, err
	}
	bands, err := t.Strings(cols.PopulationAgeBand)
	if err != nil {
		return nil, err
	}
	counts, err := t.Strings(cols.PopulationCount)
	if err != nil {
		return nil, err
	}

	var out []generic.RawPopulationRecord
	for i, loc := range locations {
		id, ok := byLocation[loc]
		if !ok {
			continue
		}
		year, err := strconv.Atoi(years[i])
		if err != nil {
			return nil, &generic.ColumnError{Table: t.Name, Column: cols.PopulationYear, Row: i + 1, Value: years[i], Err: err}
		}
		count, err := decimal.NewFromString(counts[i])
		if err != nil {
			return nil, &generic.ColumnError{Table: t.Name, Column: cols.PopulationCount, Row: i + 1, Value: counts[i], Err: err}
		}
		out = append(out, generic.RawPopulationRecord{
			PopulationID:  id,
			AgeBand:       generic.AgeBand(bands[i]),
			ReferenceYear: year,
			Count:         count,
		})
	}
	return out, nil
}

func firstColumn(t *generic.Table, names []string) (string, error) {
	for _, n := range names {
		if t.HasColumn(n) {
			return n, nil
		}
	}
	return "", &generic.ColumnError{Table: t.Name, Column: strings.Join(names, " | ")}
}
