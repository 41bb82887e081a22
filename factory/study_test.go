package factory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/warp/copd-rates/copd"
	"github.com/warp/copd-rates/factory"
	"github.com/warp/copd-rates/generic"
	"github.com/warp/copd-rates/generic/store"
)

func TestParseStudy_DefaultPresetMatchesDefaultConfig(t *testing.T) {
	cfg, err := factory.ParseStudy([]byte(factory.DefaultStudyYAML()))
	require.NoError(t, err)
	assert.Equal(t, copd.DefaultConfig(), *cfg)
}

func TestParseStudy_EmptyDocumentUsesDefaults(t *testing.T) {
	def, err := factory.ParseDefinition(nil, "")
	require.NoError(t, err)
	assert.Equal(t, copd.DefaultConfig(), def.Config)
	assert.Empty(t, def.Files)

	_, err = def.Source()
	assert.Error(t, err, "no files bound")
}

func TestParseStudy_JSON(t *testing.T) {
	// GIVEN: A JSON document with one population and banker's rounding
	doc := `{"reference_year": 2020,` +
		`"populations": [{"id": "kenya", "location": "Kenya", "mortality_column": "Death rate, Kenya, 2020"}],` +
		`"rounding": {"places": 2, "mode": "half_even"}}`

	cfg, err := factory.ParseStudy([]byte(doc))
	require.NoError(t, err)

	// THEN: Fields are taken from the document, the rest from defaults
	assert.Equal(t, 2020, cfg.ReferenceYear)
	require.Len(t, cfg.Populations, 1)
	assert.Equal(t, generic.PopulationID("kenya"), cfg.Populations[0].ID)
	assert.Equal(t, "Kenya", cfg.Populations[0].Name, "name defaults to location")
	assert.Equal(t, int32(2), cfg.Places)
	assert.Equal(t, generic.RoundHalfEven, cfg.Rounding)
	assert.Equal(t, copd.DefaultColumns(), cfg.Columns)
}

func TestParseStudy_ExplicitZeroPlaces(t *testing.T) {
	cfg, err := factory.ParseStudy([]byte("rounding:\n  places: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, int32(0), cfg.Places)
	assert.Equal(t, generic.RoundHalfUp, cfg.Rounding)
}

func TestParseStudy_ColumnOverrides(t *testing.T) {
	doc := `
columns:
  population_count: Population
  population_age_band: Age
`
	cfg, err := factory.ParseStudy([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Population", cfg.Columns.PopulationCount)
	assert.Equal(t, "Age", cfg.Columns.PopulationAgeBand)
	assert.Equal(t, "Location", cfg.Columns.PopulationLocation)
}

func TestParseStudy_Rejects(t *testing.T) {
	docs := map[string]string{
		"unknown key":       "referenceyear: 2019\n",
		"bad rounding mode": "rounding:\n  mode: ceiling\n",
		"missing column":    "populations:\n  - id: kenya\n    location: Kenya\n",
		"duplicate id": `
populations:
  - {id: a, location: A, mortality_column: x}
  - {id: a, location: B, mortality_column: y}
`,
		"not yaml": "populations: [",
	}
	for name, doc := range docs {
		_, err := factory.ParseStudy([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadDefinition_ResolvesRelativeFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "study.yaml")
	require.NoError(t, os.WriteFile(path, []byte(factory.DefaultStudyYAML()), 0o644))

	def, err := factory.LoadDefinition(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "WHO_age_standardisation.csv"), def.Files[copd.TableWeights])
	assert.Len(t, def.Files, 3)
}

func TestLoadDefinition_MissingFile(t *testing.T) {
	_, err := factory.LoadDefinition(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefinition_SourceRunsStudy(t *testing.T) {
	// GIVEN: The default study pointing at the copd fixtures
	testdata, err := filepath.Abs(filepath.Join("..", "copd", "testdata"))
	require.NoError(t, err)

	dir := t.TempDir()
	for _, name := range []string{
		"Age_specific_DR_COPD_2019.csv",
		"WHO_age_standardisation.csv",
		"WPP2022_PopulationByAge5GroupSex_2019.csv",
	} {
		data, err := os.ReadFile(filepath.Join(testdata, name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	path := filepath.Join(dir, "study.yaml")
	require.NoError(t, os.WriteFile(path, []byte(factory.DefaultStudyYAML()), 0o644))

	def, err := factory.LoadDefinition(path)
	require.NoError(t, err)
	src, err := def.Source()
	require.NoError(t, err)

	// WHEN: The study runs over the filtered CSV source
	study, err := factory.NewStudy(&def.Config, src)
	require.NoError(t, err)
	results, err := study.Run(context.Background())
	require.NoError(t, err)

	// THEN: The reference statistics come out
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.Equal(t, "5.8", results[0].Statistics.CrudeDeathRate.String())
	assert.Equal(t, "28.7", results[0].Statistics.ASDR.String())
	assert.Equal(t, "57.2", results[1].Statistics.CrudeDeathRate.String())
	assert.Equal(t, "28.4", results[1].Statistics.ASDR.String())

	// Only the study's locations for 2019 are read from the population file.
	tbl, err := src.Table(context.Background(), copd.TablePopulation)
	require.NoError(t, err)
	assert.Equal(t, 42, tbl.Len())
}

func TestDefinition_BoundSourceWithoutEveryFile(t *testing.T) {
	// GIVEN: A definition binding only the population file
	def, err := factory.ParseDefinition([]byte(factory.DefaultStudyYAML()), filepath.Join("..", "copd", "testdata"))
	require.NoError(t, err)
	delete(def.Files, copd.TableMortality)

	_, err = def.Source()
	require.Error(t, err)

	// WHEN: The bound files are read
	src := def.BoundSource()

	// THEN: Population is filtered like Source, mortality is not found
	tbl, err := src.Table(context.Background(), copd.TablePopulation)
	require.NoError(t, err)
	assert.Equal(t, 42, tbl.Len())

	_, err = src.Table(context.Background(), copd.TableMortality)
	assert.ErrorIs(t, err, generic.ErrTableNotFound)
}

func TestToYAML_ParsesBack(t *testing.T) {
	cfg := copd.DefaultConfig()
	cfg.Rounding = generic.RoundHalfEven
	files := map[string]string{copd.TableMortality: "/data/mortality.csv"}

	data, err := yaml.Marshal(factory.ToYAML(cfg, files))
	require.NoError(t, err)

	def, err := factory.ParseDefinition(data, "")
	require.NoError(t, err)
	assert.Equal(t, cfg, def.Config)
	assert.Equal(t, files, def.Files)
}

func TestNewStudy_NilConfigUsesDefault(t *testing.T) {
	study, err := factory.NewStudy(nil, store.NewMemory())
	require.NoError(t, err)
	assert.Equal(t, copd.DefaultConfig(), study.Config)

	_, err = factory.NewStudy(nil, nil)
	assert.Error(t, err, "source is required")
}
