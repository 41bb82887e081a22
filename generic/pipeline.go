package generic

import "sync"

// PopulationInput is everything a pipeline needs that is specific to one
// population-of-interest. Standard weights are passed separately because
// they are shared by all populations.
type PopulationInput struct {
	PopulationID PopulationID
	Mortality    []MortalityRecord
	Population   []PopulationRecord // fine bands, one population, one year
}

// Pipeline runs reconcile -> join -> aggregate for one population.
// It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	Reconciler Reconciler
	Joiner     Joiner
	Aggregator Aggregator
}

// NewPipeline wires the three stages over one taxonomy.
func NewPipeline(t Taxonomy) *Pipeline {
	return &Pipeline{
		Reconciler: NewReconciler(t),
		Joiner:     NewJoiner(t),
		Aggregator: NewAggregator(),
	}
}

// Run computes statistics for one population. Any defect aborts the run;
// there is no partial result.
func (p *Pipeline) Run(in PopulationInput, weights []StandardWeight) (Statistics, error) {
	for i := range in.Population {
		if in.Population[i].PopulationID != in.PopulationID {
			return Statistics{}, &SchemaMismatchError{
				PopulationID: in.PopulationID,
				Reason:       "population records belong to " + string(in.Population[i].PopulationID),
			}
		}
	}

	coarse, err := p.Reconciler.Reconcile(in.Population)
	if err != nil {
		return Statistics{}, err
	}
	joined, err := p.Joiner.Join(in.Mortality, weights, coarse)
	if err != nil {
		return Statistics{}, err
	}
	stats, err := p.Aggregator.Aggregate(joined)
	if err != nil {
		return Statistics{}, err
	}
	stats.PopulationID = in.PopulationID
	return stats, nil
}

// RunAll runs every population independently, one goroutine each.
// Results are returned in input order; a failure in one population does
// not affect the others.
func (p *Pipeline) RunAll(inputs []PopulationInput, weights []StandardWeight) []Result {
	results := make([]Result, len(inputs))
	var wg sync.WaitGroup
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stats, err := p.Run(inputs[i], weights)
			results[i] = Result{PopulationID: inputs[i].PopulationID, Statistics: stats, Err: err}
		}(i)
	}
	wg.Wait()
	return results
}
