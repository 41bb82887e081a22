/*
Package report renders study results for people.

PURPOSE:
  Turns []generic.Result into the two outputs analysts read: one narrative
  line per statistic, and a side-by-side table that puts the crude rate
  next to the age-standardised rate so the effect of age structure is
  visible at a glance.

OUTPUT:
  Crude Death Rates for Uganda per 100000: 5.8
  ASDR Uganda per 100000: 28.7
  Crude Death Rates for USA per 100000: 57.2
  ASDR USA per 100000: 28.4

  POPULATION  YEAR  CRUDE  ASDR  CRUDE/ASDR  DEATHS  PERSONS
  Uganda      2019  5.8    28.7  0.20        2485    42677111
  USA         2019  57.2   28.4  2.01        186263  325448382

  A failed population prints its error instead of numbers. The other
  populations are unaffected.

SEE ALSO:
  - copd/study.go: Produces the results
  - api/handlers.go: Serves the same summaries as JSON
*/
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/warp/copd-rates/copd"
	"github.com/warp/copd-rates/generic"
)

// Summary is one population's line of the comparison. Rates are rounded
// to Places decimals before they are converted to float64.
type Summary struct {
	PopulationID   generic.PopulationID `json:"population_id"`
	Name           string               `json:"name"`
	ReferenceYear  int                  `json:"reference_year"`
	CrudeDeathRate *float64             `json:"crude_death_rate,omitempty"`
	ASDR           *float64             `json:"asdr,omitempty"`
	Ratio          *float64             `json:"crude_to_asdr,omitempty"`
	Deaths         *float64             `json:"deaths,omitempty"`
	Persons        *float64             `json:"persons,omitempty"`
	Error          string               `json:"error,omitempty"`

	// Places is the number of decimals the rates are printed with.
	Places int32 `json:"-"`
}

// Failed reports whether the population's pipeline failed.
func (s Summary) Failed() bool {
	return s.Error != ""
}

// Summarize pairs results with the configured population names.
func Summarize(cfg copd.Config, results []generic.Result) []Summary {
	out := make([]Summary, 0, len(results))
	for _, r := range results {
		s := Summary{
			PopulationID:  r.PopulationID,
			Name:          string(r.PopulationID),
			ReferenceYear: cfg.ReferenceYear,
			Places:        cfg.Places,
		}
		if p, ok := cfg.Population(r.PopulationID); ok && p.Name != "" {
			s.Name = p.Name
		}
		if r.Err != nil {
			s.Error = r.Err.Error()
			out = append(out, s)
			continue
		}

		st := r.Statistics
		s.CrudeDeathRate = toFloat(st.CrudeDeathRate)
		s.ASDR = toFloat(st.ASDR)
		s.Deaths = toFloat(st.TotalDeaths.Round(0))
		s.Persons = toFloat(st.TotalPersons.Round(0))
		if !st.ExactASDR.IsZero() {
			s.Ratio = toFloat(st.ExactCrudeDeathRate.Div(st.ExactASDR).Round(2))
		}
		out = append(out, s)
	}
	return out
}

// Write prints the narrative lines followed by the comparison table.
func Write(w io.Writer, cfg copd.Config, results []generic.Result) error {
	summaries := Summarize(cfg, results)
	if err := WriteNarrative(w, summaries); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return WriteTable(w, summaries)
}

// WriteNarrative prints two lines per population.
func WriteNarrative(w io.Writer, summaries []Summary) error {
	for _, s := range summaries {
		if s.Failed() {
			if _, err := fmt.Fprintf(w, "%s: no statistics: %s\n", s.Name, s.Error); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "Crude Death Rates for %s per 100000: %s\n", s.Name, fixed(s.CrudeDeathRate, s.Places)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "ASDR %s per 100000: %s\n", s.Name, fixed(s.ASDR, s.Places)); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable prints the side-by-side comparison.
func WriteTable(w io.Writer, summaries []Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POPULATION\tYEAR\tCRUDE\tASDR\tCRUDE/ASDR\tDEATHS\tPERSONS")
	for _, s := range summaries {
		if s.Failed() {
			fmt.Fprintf(tw, "%s\t%d\t-\t-\t-\t-\t-\n", s.Name, s.ReferenceYear)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			s.Name, s.ReferenceYear,
			fixed(s.CrudeDeathRate, s.Places), fixed(s.ASDR, s.Places),
			fixed(s.Ratio, 2), fixed(s.Deaths, 0), fixed(s.Persons, 0))
	}
	return tw.Flush()
}

// WriteJSON prints the summaries as an indented JSON array.
func WriteJSON(w io.Writer, cfg copd.Config, results []generic.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Summarize(cfg, results))
}

func toFloat(d decimal.Decimal) *float64 {
	f := d.InexactFloat64()
	return &f
}

// fixed prints v with exactly places decimals, so 28 reads "28.0".
func fixed(v *float64, places int32) string {
	if v == nil {
		return "-"
	}
	return decimal.NewFromFloat(*v).StringFixed(places)
}
