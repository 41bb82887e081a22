/*
Package factory provides YAML to Go study conversion.

PURPOSE:
  Converts YAML (or JSON) study definitions into copd.Config values and the
  table sources they read from. A new population, a different reference
  year or a renamed CSV header needs an edited file, not a code change.

WHY YAML?
  - Analysts can add a population without touching Go
  - Column names of downloaded CSVs change between releases
  - JSON is a subset, so the HTTP API and scripts can send the same document

YAML SCHEMA:
  reference_year: 2019
  populations:
    - id: uganda
      name: Uganda
      location: Uganda
      mortality_column: "Death rate, Uganda, 2019"
  tables:
    mortality:
      name: mortality
      file: Age_specific_DR_COPD_2019.csv
    weights:
      name: standard_weights
      file: WHO_age_standardisation.csv
    population:
      name: population
      file: WPP2022_PopulationByAge5GroupSex_2019.csv
  columns:
    mortality_age_band: ["Age group (years)", "Age group"]
    population_count: PopTotal
  rounding:
    places: 1
    mode: half_up

KEY FEATURES:
  - Unknown keys are rejected (a typo must not silently fall back to a default)
  - Omitted sections take the defaults of copd.DefaultConfig
  - Relative file paths resolve against the definition's directory
  - The CSV source filters the population table to the study's locations

USAGE:
  def, err := factory.LoadDefinition("study.yaml")
  src, err := def.Source()
  study, err := factory.NewStudy(&def.Config, src)
  results, err := study.Run(ctx)

SEE ALSO:
  - copd/types.go: Config type definition
  - store/csvfile/source.go: CSV table source
*/
package factory

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/warp/copd-rates/copd"
	"github.com/warp/copd-rates/generic"
	"github.com/warp/copd-rates/store/csvfile"
)

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

// StudyYAML is the YAML representation of a study.
type StudyYAML struct {
	ReferenceYear int              `yaml:"reference_year,omitempty" json:"reference_year,omitempty"`
	Populations   []PopulationYAML `yaml:"populations,omitempty" json:"populations,omitempty"`
	Tables        *TablesYAML      `yaml:"tables,omitempty" json:"tables,omitempty"`
	Columns       *ColumnsYAML     `yaml:"columns,omitempty" json:"columns,omitempty"`
	Rounding      *RoundingYAML    `yaml:"rounding,omitempty" json:"rounding,omitempty"`
}

// PopulationYAML represents one population of interest.
type PopulationYAML struct {
	ID              string `yaml:"id" json:"id"`
	Name            string `yaml:"name,omitempty" json:"name,omitempty"`
	Location        string `yaml:"location" json:"location"`
	MortalityColumn string `yaml:"mortality_column" json:"mortality_column"`
}

// TablesYAML binds the study's three roles to tables.
type TablesYAML struct {
	Mortality  TableYAML `yaml:"mortality" json:"mortality"`
	Weights    TableYAML `yaml:"weights" json:"weights"`
	Population TableYAML `yaml:"population" json:"population"`
}

// TableYAML is a logical table name and, optionally, the CSV file it is read
// from. Without a file the table must come from another source (SQLite).
type TableYAML struct {
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	File string `yaml:"file,omitempty" json:"file,omitempty"`
}

// ColumnsYAML overrides source column names. Empty fields keep the default.
type ColumnsYAML struct {
	MortalityAgeBand   []string `yaml:"mortality_age_band,omitempty" json:"mortality_age_band,omitempty"`
	WeightAgeBand      string   `yaml:"weight_age_band,omitempty" json:"weight_age_band,omitempty"`
	Weight             string   `yaml:"weight,omitempty" json:"weight,omitempty"`
	PopulationLocation string   `yaml:"population_location,omitempty" json:"population_location,omitempty"`
	PopulationYear     string   `yaml:"population_year,omitempty" json:"population_year,omitempty"`
	PopulationAgeBand  string   `yaml:"population_age_band,omitempty" json:"population_age_band,omitempty"`
	PopulationCount    string   `yaml:"population_count,omitempty" json:"population_count,omitempty"`
}

// RoundingYAML configures result rounding. Places is a pointer so that an
// explicit 0 is distinguishable from "not set".
type RoundingYAML struct {
	Places *int32 `yaml:"places,omitempty" json:"places,omitempty"`
	Mode   string `yaml:"mode,omitempty" json:"mode,omitempty"`
}

// =============================================================================
// DEFINITION
// =============================================================================

// Definition is a parsed study: the config plus the CSV file bound to each
// logical table name (absent for tables served by another source).
type Definition struct {
	Config copd.Config
	Files  map[string]string
}

// ParseStudy parses a YAML or JSON document into a validated study config.
func ParseStudy(data []byte) (*copd.Config, error) {
	def, err := ParseDefinition(data, "")
	if err != nil {
		return nil, err
	}
	return &def.Config, nil
}

// LoadDefinition reads a definition file. Relative table files resolve
// against the file's directory.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read study file %s: %w", path, err)
	}
	def, err := ParseDefinition(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// ParseDefinition parses a document, resolving relative table files against
// baseDir (ignored when empty).
func ParseDefinition(data []byte, baseDir string) (*Definition, error) {
	var sy StudyYAML
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sy); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse study: %w", err)
	}
	return FromYAML(sy, baseDir)
}

// FromYAML converts StudyYAML into a Definition, applying defaults and
// validating the result.
func FromYAML(sy StudyYAML, baseDir string) (*Definition, error) {
	cfg := copd.DefaultConfig()

	if sy.ReferenceYear != 0 {
		cfg.ReferenceYear = sy.ReferenceYear
	}

	if len(sy.Populations) > 0 {
		cfg.Populations = make([]copd.Population, len(sy.Populations))
		for i, pj := range sy.Populations {
			cfg.Populations[i] = parsePopulation(pj)
		}
	}

	files := make(map[string]string)
	if sy.Tables != nil {
		cfg.Tables.Mortality = bindTable(sy.Tables.Mortality, cfg.Tables.Mortality, baseDir, files)
		cfg.Tables.Weights = bindTable(sy.Tables.Weights, cfg.Tables.Weights, baseDir, files)
		cfg.Tables.Population = bindTable(sy.Tables.Population, cfg.Tables.Population, baseDir, files)
	}

	if sy.Columns != nil {
		cfg.Columns = parseColumns(*sy.Columns, cfg.Columns)
	}

	if sy.Rounding != nil {
		if sy.Rounding.Places != nil {
			cfg.Places = *sy.Rounding.Places
		}
		if sy.Rounding.Mode != "" {
			mode, err := generic.ParseRoundingMode(sy.Rounding.Mode)
			if err != nil {
				return nil, err
			}
			cfg.Rounding = mode
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid study: %w", err)
	}
	return &Definition{Config: cfg, Files: files}, nil
}

// ToYAML converts a config back to its YAML representation.
func ToYAML(cfg copd.Config, files map[string]string) StudyYAML {
	places := cfg.Places
	sy := StudyYAML{
		ReferenceYear: cfg.ReferenceYear,
		Tables: &TablesYAML{
			Mortality:  TableYAML{Name: cfg.Tables.Mortality, File: files[cfg.Tables.Mortality]},
			Weights:    TableYAML{Name: cfg.Tables.Weights, File: files[cfg.Tables.Weights]},
			Population: TableYAML{Name: cfg.Tables.Population, File: files[cfg.Tables.Population]},
		},
		Columns: &ColumnsYAML{
			MortalityAgeBand:   cfg.Columns.MortalityAgeBand,
			WeightAgeBand:      cfg.Columns.WeightAgeBand,
			Weight:             cfg.Columns.Weight,
			PopulationLocation: cfg.Columns.PopulationLocation,
			PopulationYear:     cfg.Columns.PopulationYear,
			PopulationAgeBand:  cfg.Columns.PopulationAgeBand,
			PopulationCount:    cfg.Columns.PopulationCount,
		},
		Rounding: &RoundingYAML{Places: &places, Mode: string(cfg.Rounding)},
	}
	for _, p := range cfg.Populations {
		sy.Populations = append(sy.Populations, PopulationYAML{
			ID:              string(p.ID),
			Name:            p.Name,
			Location:        p.Location,
			MortalityColumn: p.MortalityColumn,
		})
	}
	return sy
}

// Source builds a CSV table source over the definition's files. The
// population table is filtered to the study's locations and reference year
// while it is read.
func (d *Definition) Source() (*csvfile.Source, error) {
	cfg := d.Config
	for _, name := range []string{cfg.Tables.Mortality, cfg.Tables.Weights, cfg.Tables.Population} {
		if d.Files[name] == "" {
			return nil, fmt.Errorf("no file bound to table %q", name)
		}
	}
	return d.BoundSource(), nil
}

// BoundSource reads whichever files the definition binds, with the same
// population filters as Source. Tables without a file are not found.
func (d *Definition) BoundSource() *csvfile.Source {
	cfg := d.Config
	locations := make([]string, len(cfg.Populations))
	for i, p := range cfg.Populations {
		locations[i] = p.Location
	}

	return csvfile.New(d.Files).
		WithFilter(cfg.Tables.Population, csvfile.Filter{Column: cfg.Columns.PopulationLocation, Values: locations}).
		WithFilter(cfg.Tables.Population, csvfile.Filter{Column: cfg.Columns.PopulationYear, Values: []string{strconv.Itoa(cfg.ReferenceYear)}})
}

// NewStudy creates a study over src. A nil cfg runs the default study.
func NewStudy(cfg *copd.Config, src generic.TableSource) (*copd.Study, error) {
	if cfg == nil {
		def := copd.DefaultConfig()
		cfg = &def
	}
	return copd.NewStudy(*cfg, src)
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parsePopulation(pj PopulationYAML) copd.Population {
	p := copd.Population{
		ID:              generic.PopulationID(pj.ID),
		Name:            pj.Name,
		Location:        pj.Location,
		MortalityColumn: pj.MortalityColumn,
	}
	if p.Name == "" {
		p.Name = p.Location
	}
	return p
}

func bindTable(tj TableYAML, def, baseDir string, files map[string]string) string {
	name := tj.Name
	if name == "" {
		name = def
	}
	if tj.File != "" {
		path := tj.File
		if baseDir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		files[name] = path
	}
	return name
}

func parseColumns(cj ColumnsYAML, c copd.Columns) copd.Columns {
	if len(cj.MortalityAgeBand) > 0 {
		c.MortalityAgeBand = cj.MortalityAgeBand
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.WeightAgeBand, cj.WeightAgeBand)
	set(&c.Weight, cj.Weight)
	set(&c.PopulationLocation, cj.PopulationLocation)
	set(&c.PopulationYear, cj.PopulationYear)
	set(&c.PopulationAgeBand, cj.PopulationAgeBand)
	set(&c.PopulationCount, cj.PopulationCount)
	return c
}

// =============================================================================
// PRESET
// =============================================================================

// DefaultStudyYAML returns the Uganda / USA 2019 comparison with the file
// names of the published downloads.
func DefaultStudyYAML() string {
	return `reference_year: 2019
populations:
  - id: uganda
    name: Uganda
    location: Uganda
    mortality_column: "Death rate, Uganda, 2019"
  - id: usa
    name: USA
    location: United States of America
    mortality_column: "Death rate, United States, 2019"
tables:
  mortality:
    name: mortality
    file: Age_specific_DR_COPD_2019.csv
  weights:
    name: standard_weights
    file: WHO_age_standardisation.csv
  population:
    name: population
    file: WPP2022_PopulationByAge5GroupSex_2019.csv
columns:
  mortality_age_band: ["Age group (years)", "Age group"]
  weight_age_band: Age group
  weight: WHO World Standard
  population_location: Location
  population_year: Time
  population_age_band: AgeGrp
  population_count: PopTotal
rounding:
  places: 1
  mode: half_up
`
}
