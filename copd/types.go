// Package copd implements the COPD mortality comparison study.
// It binds the generic standardisation engine to the study's three source
// tables: age-specific COPD death rates, the WHO world standard population
// and the UN World Population Prospects counts.
package copd

import (
	"fmt"

	"github.com/warp/copd-rates/generic"
)

// =============================================================================
// POPULATIONS OF INTEREST
// =============================================================================

// Population describes how one population-of-interest appears in the
// source tables.
type Population struct {
	ID              generic.PopulationID
	Name            string // display name, e.g. "Uganda"
	Location        string // value of the population table's location column
	MortalityColumn string // column of the mortality table holding its rates
}

var (
	Uganda = Population{
		ID:              "uganda",
		Name:            "Uganda",
		Location:        "Uganda",
		MortalityColumn: "Death rate, Uganda, 2019",
	}
	USA = Population{
		ID:              "usa",
		Name:            "USA",
		Location:        "United States of America",
		MortalityColumn: "Death rate, United States, 2019",
	}
)

// ReferenceYear of the study.
const ReferenceYear = 2019

// =============================================================================
// TABLES AND COLUMNS
// =============================================================================

// Logical table names resolved through a generic.TableSource.
const (
	TableMortality  = "mortality"
	TableWeights    = "standard_weights"
	TablePopulation = "population"
)

// Tables maps the study's roles to logical table names.
type Tables struct {
	Mortality  string
	Weights    string
	Population string
}

// Columns names the source columns the study reads. Everything else in the
// source tables is ignored.
type Columns struct {
	MortalityAgeBand   []string // first match wins, e.g. "Age group (years)" or "Age group"
	WeightAgeBand      string
	Weight             string
	PopulationLocation string
	PopulationYear     string
	PopulationAgeBand  string
	PopulationCount    string
}

// DefaultColumns match the published CSV headers.
func DefaultColumns() Columns {
	return Columns{
		MortalityAgeBand:   []string{"Age group (years)", "Age group"},
		WeightAgeBand:      "Age group",
		Weight:             "WHO World Standard",
		PopulationLocation: "Location",
		PopulationYear:     "Time",
		PopulationAgeBand:  "AgeGrp",
		PopulationCount:    "PopTotal",
	}
}

// =============================================================================
// CONFIG
// =============================================================================

// Config fully describes a study run.
type Config struct {
	ReferenceYear int
	Populations   []Population
	Tables        Tables
	Columns       Columns
	Places        int32
	Rounding      generic.RoundingMode
}

// DefaultConfig is the Uganda / USA 2019 comparison.
func DefaultConfig() Config {
	return Config{
		ReferenceYear: ReferenceYear,
		Populations:   []Population{Uganda, USA},
		Tables: Tables{
			Mortality:  TableMortality,
			Weights:    TableWeights,
			Population: TablePopulation,
		},
		Columns:  DefaultColumns(),
		Places:   1,
		Rounding: generic.RoundHalfUp,
	}
}

// Validate checks the config for values the study cannot run with.
func (c Config) Validate() error {
	if c.ReferenceYear <= 0 {
		return fmt.Errorf("reference year is required")
	}
	if len(c.Populations) == 0 {
		return fmt.Errorf("at least one population is required")
	}
	seen := make(map[generic.PopulationID]bool)
	locations := make(map[string]bool)
	for _, p := range c.Populations {
		switch {
		case p.ID == "":
			return fmt.Errorf("population id is required")
		case seen[p.ID]:
			return fmt.Errorf("duplicate population %q", p.ID)
		case p.Location == "":
			return fmt.Errorf("population %q: location is required", p.ID)
		case locations[p.Location]:
			return fmt.Errorf("population %q: location %q used twice", p.ID, p.Location)
		case p.MortalityColumn == "":
			return fmt.Errorf("population %q: mortality column is required", p.ID)
		}
		seen[p.ID] = true
		locations[p.Location] = true
	}
	if c.Tables.Mortality == "" || c.Tables.Weights == "" || c.Tables.Population == "" {
		return fmt.Errorf("mortality, weights and population tables are required")
	}
	if c.Places < 0 || c.Places > 8 {
		return fmt.Errorf("rounding places must be between 0 and 8, got %d", c.Places)
	}
	if _, err := generic.ParseRoundingMode(string(c.Rounding)); err != nil {
		return err
	}
	return nil
}

// Population looks up a population by id.
func (c Config) Population(id generic.PopulationID) (Population, bool) {
	for _, p := range c.Populations {
		if p.ID == id {
			return p, true
		}
	}
	return Population{}, false
}
