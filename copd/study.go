package copd

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/warp/copd-rates/generic"
)

// Study runs the comparison for every configured population.
type Study struct {
	Config   Config
	Source   generic.TableSource
	Pipeline *generic.Pipeline
	Logger   *log.Logger
}

// NewStudy validates cfg and wires a pipeline over the standard taxonomy.
func NewStudy(cfg Config, src generic.TableSource) (*Study, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid study config: %w", err)
	}
	if src == nil {
		return nil, fmt.Errorf("table source is required")
	}
	mode, _ := generic.ParseRoundingMode(string(cfg.Rounding))

	p := generic.NewPipeline(generic.StandardTaxonomy())
	p.Aggregator = generic.Aggregator{Places: cfg.Places, Rounding: mode}

	return &Study{
		Config:   cfg,
		Source:   src,
		Pipeline: p,
		Logger:   log.New(io.Discard, "", 0),
	}, nil
}

// Inputs loads the three tables and builds one pipeline input per
// population plus the shared weights.
func (s *Study) Inputs(ctx context.Context) ([]generic.PopulationInput, []generic.StandardWeight, error) {
	cfg := s.Config

	weightsTable, err := s.Source.Table(ctx, cfg.Tables.Weights)
	if err != nil {
		return nil, nil, fmt.Errorf("load standard weights: %w", err)
	}
	weights, err := LoadWeights(weightsTable, cfg.Columns)
	if err != nil {
		return nil, nil, fmt.Errorf("read standard weights: %w", err)
	}

	mortalityTable, err := s.Source.Table(ctx, cfg.Tables.Mortality)
	if err != nil {
		return nil, nil, fmt.Errorf("load mortality: %w", err)
	}

	populationTable, err := s.Source.Table(ctx, cfg.Tables.Population)
	if err != nil {
		return nil, nil, fmt.Errorf("load population: %w", err)
	}
	raw, err := LoadPopulation(populationTable, cfg.Columns, cfg.Populations)
	if err != nil {
		return nil, nil, fmt.Errorf("read population: %w", err)
	}

	inputs := make([]generic.PopulationInput, 0, len(cfg.Populations))
	for _, p := range cfg.Populations {
		m, err := LoadMortality(mortalityTable, cfg.Columns, p)
		if err != nil {
			return nil, nil, fmt.Errorf("read mortality: %w", err)
		}
		inputs = append(inputs, generic.PopulationInput{
			PopulationID: p.ID,
			Mortality:    m,
			Population:   generic.SelectPopulation(raw, p.ID, cfg.ReferenceYear),
		})
	}
	return inputs, weights, nil
}

// Run computes statistics for every population. The returned error covers
// table loading only; pipeline failures are reported per population.
func (s *Study) Run(ctx context.Context) ([]generic.Result, error) {
	inputs, weights, err := s.Inputs(ctx)
	if err != nil {
		return nil, err
	}
	results := s.Pipeline.RunAll(inputs, weights)
	for _, r := range results {
		s.logResult(r)
	}
	return results, nil
}

// RunPopulation computes statistics for a single population.
func (s *Study) RunPopulation(ctx context.Context, id generic.PopulationID) (generic.Statistics, error) {
	if _, ok := s.Config.Population(id); !ok {
		return generic.Statistics{}, fmt.Errorf("%w: %q", generic.ErrPopulationNotFound, id)
	}
	inputs, weights, err := s.Inputs(ctx)
	if err != nil {
		return generic.Statistics{}, err
	}
	for _, in := range inputs {
		if in.PopulationID != id {
			continue
		}
		stats, err := s.Pipeline.Run(in, weights)
		s.logResult(generic.Result{PopulationID: id, Statistics: stats, Err: err})
		if err != nil {
			return generic.Statistics{}, fmt.Errorf("%s: %w", id, err)
		}
		return stats, nil
	}
	return generic.Statistics{}, fmt.Errorf("%w: %q", generic.ErrPopulationNotFound, id)
}

func (s *Study) logResult(r generic.Result) {
	if s.Logger == nil {
		return
	}
	if r.Err != nil {
		s.Logger.Printf("%s %d: failed: %v", r.PopulationID, s.Config.ReferenceYear, r.Err)
		return
	}
	s.Logger.Printf("%s %d: crude %s, asdr %s (%d bands)",
		r.PopulationID, s.Config.ReferenceYear, r.Statistics.CrudeDeathRate, r.Statistics.ASDR, r.Statistics.Bands)
}
