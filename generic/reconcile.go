/*
reconcile.go - Fine -> coarse age-band reconciliation

PURPOSE:
  Population sources publish 5-year bands up to "100+". Mortality and
  standard-weight sources stop at an open "85+" band. The reconciler maps
  one population's fine bands onto the coarse taxonomy.

ALGORITHM:
  1. Bands below the open band's lower bound pass through unchanged
  2. Bands at or above it are selected BY LABEL against Taxonomy.Collapsed
  3. The selected counts are summed exactly into one open-band record
  4. The open-band record is appended after the pass-through bands

  The selected set must equal Taxonomy.Collapsed exactly. A source with a
  different top band ("80+", "95+") or a missing top band fails with
  SchemaMismatchError instead of producing a partial sum.

PRECONDITION:
  Input holds exactly one population and one reference year. The
  reconciler does not filter; see SelectPopulation.
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Reconciler collapses fine population bands into a coarse taxonomy.
type Reconciler struct {
	Taxonomy Taxonomy
}

// NewReconciler creates a reconciler for the given taxonomy.
func NewReconciler(t Taxonomy) Reconciler {
	return Reconciler{Taxonomy: t}
}

// Reconcile returns a new slice with one record per coarse band.
// The input slice is not modified.
func (r Reconciler) Reconcile(fine []PopulationRecord) ([]PopulationRecord, error) {
	tax := r.Taxonomy
	openFrom := tax.OpenLowerBound()

	var id PopulationID
	if len(fine) > 0 {
		id = fine[0].PopulationID
	}

	var (
		kept       []PopulationRecord
		top        []PopulationRecord
		unexpected []AgeBand
		duplicate  []AgeBand
		seen       = make(map[AgeBand]bool, len(fine))
	)

	for _, rec := range fine {
		if rec.PopulationID != id {
			return nil, &SchemaMismatchError{
				PopulationID: id,
				Reason:       fmt.Sprintf("records span populations %s and %s", id, rec.PopulationID),
			}
		}
		if rec.Count.IsNegative() {
			return nil, &InvalidValueError{Field: "population_count", AgeBand: rec.AgeBand, Value: rec.Count}
		}
		if seen[rec.AgeBand] {
			duplicate = append(duplicate, rec.AgeBand)
			continue
		}
		seen[rec.AgeBand] = true

		lower, ok := rec.AgeBand.LowerBound()
		switch {
		case !ok:
			unexpected = append(unexpected, rec.AgeBand)
		case lower >= openFrom && tax.IsCollapsed(rec.AgeBand):
			top = append(top, rec)
		case lower < openFrom && tax.Contains(rec.AgeBand):
			kept = append(kept, rec)
		default:
			unexpected = append(unexpected, rec.AgeBand)
		}
	}

	var missing []AgeBand
	for _, b := range tax.Bands {
		if b != tax.OpenBand && !seen[b] {
			missing = append(missing, b)
		}
	}
	for _, b := range tax.Collapsed {
		if !seen[b] {
			missing = append(missing, b)
		}
	}

	if len(missing) > 0 || len(unexpected) > 0 || len(duplicate) > 0 {
		return nil, &SchemaMismatchError{
			PopulationID: id,
			Missing:      missing,
			Unexpected:   unexpected,
			Duplicate:    duplicate,
		}
	}

	sum := decimal.Zero
	for _, rec := range top {
		sum = sum.Add(rec.Count)
	}

	out := make([]PopulationRecord, 0, len(kept)+1)
	out = append(out, kept...)
	out = append(out, PopulationRecord{
		PopulationID: id,
		AgeBand:      tax.OpenBand,
		Count:        sum,
	})
	return out, nil
}
