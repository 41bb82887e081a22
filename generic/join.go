package generic

// Joiner inner-joins mortality, standard weights and population on age band.
//
// The join is exact-match on the band label. Every side must hold each
// taxonomy band exactly once; anything else is a JoinIncompleteError, so a
// duplicate key can never multiply rows and a missing key can never drop one.
type Joiner struct {
	Taxonomy Taxonomy
}

// NewJoiner creates a joiner for the given taxonomy.
func NewJoiner(t Taxonomy) Joiner {
	return Joiner{Taxonomy: t}
}

// Join returns one JoinedRecord per taxonomy band, in taxonomy order.
func (j Joiner) Join(mortality []MortalityRecord, weights []StandardWeight, population []PopulationRecord) ([]JoinedRecord, error) {
	rates := make(map[AgeBand]MortalityRecord, len(mortality))
	var rateBands []AgeBand
	for _, m := range mortality {
		if m.DeathRate.IsNegative() {
			return nil, &InvalidValueError{Field: "death_rate", AgeBand: m.AgeBand, Value: m.DeathRate}
		}
		rates[m.AgeBand] = m
		rateBands = append(rateBands, m.AgeBand)
	}
	if err := j.checkSide("mortality", rateBands); err != nil {
		return nil, err
	}

	shares := make(map[AgeBand]StandardWeight, len(weights))
	var weightBands []AgeBand
	for _, w := range weights {
		if w.Weight.IsNegative() {
			return nil, &InvalidValueError{Field: "weight", AgeBand: w.AgeBand, Value: w.Weight}
		}
		shares[w.AgeBand] = w
		weightBands = append(weightBands, w.AgeBand)
	}
	if err := j.checkSide("weights", weightBands); err != nil {
		return nil, err
	}

	counts := make(map[AgeBand]PopulationRecord, len(population))
	var popBands []AgeBand
	for _, p := range population {
		if p.Count.IsNegative() {
			return nil, &InvalidValueError{Field: "population_count", AgeBand: p.AgeBand, Value: p.Count}
		}
		counts[p.AgeBand] = p
		popBands = append(popBands, p.AgeBand)
	}
	if err := j.checkSide("population", popBands); err != nil {
		return nil, err
	}

	out := make([]JoinedRecord, 0, j.Taxonomy.Len())
	for _, b := range j.Taxonomy.Bands {
		m, okM := rates[b]
		w, okW := shares[b]
		p, okP := counts[b]
		if !okM || !okW || !okP {
			continue
		}
		out = append(out, JoinedRecord{
			AgeBand:   b,
			DeathRate: m.DeathRate,
			Weight:    w.Weight,
			Count:     p.Count,
		})
	}

	// One row per taxonomy band.
	if len(out) != j.Taxonomy.Len() {
		return nil, &JoinIncompleteError{Rows: len(out), Expected: j.Taxonomy.Len()}
	}
	return out, nil
}

// checkSide verifies that bands holds every taxonomy band exactly once.
func (j Joiner) checkSide(side string, bands []AgeBand) error {
	seen := make(map[AgeBand]int, len(bands))
	var duplicate, extra []AgeBand
	for _, b := range bands {
		seen[b]++
		if seen[b] == 2 {
			duplicate = append(duplicate, b)
		}
		if seen[b] == 1 && !j.Taxonomy.Contains(b) {
			extra = append(extra, b)
		}
	}
	var missing []AgeBand
	matched := 0
	for _, b := range j.Taxonomy.Bands {
		if seen[b] == 0 {
			missing = append(missing, b)
			continue
		}
		matched++
	}
	if len(missing) == 0 && len(duplicate) == 0 && len(extra) == 0 {
		return nil
	}
	return &JoinIncompleteError{
		Side:      side,
		Missing:   missing,
		Duplicate: duplicate,
		Extra:     extra,
		Rows:      matched,
		Expected:  j.Taxonomy.Len(),
	}
}
