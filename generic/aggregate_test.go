package generic_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/copd-rates/generic"
)

func joined(t *testing.T, rates []string, pop []string) []generic.JoinedRecord {
	t.Helper()
	rows, err := newJoiner().Join(mortality(rates), weights(whoStandard), coarsePopulation("p", pop))
	require.NoError(t, err)
	return rows
}

func TestAggregate_Uganda(t *testing.T) {
	stats, err := generic.NewAggregator().Aggregate(joined(t, ugandaRates, ugandaPopulation))
	require.NoError(t, err)

	assert.Equal(t, "5.8", stats.CrudeDeathRate.String())
	assert.Equal(t, "28.7", stats.ASDR.String())
	assert.Equal(t, "28.680459", stats.ExactASDR.String())
	assert.True(t, stats.TotalPersons.Equal(dec("42677111")), "persons = %s", stats.TotalPersons)
	assert.Equal(t, 18, stats.Bands)
}

func TestAggregate_USA(t *testing.T) {
	stats, err := generic.NewAggregator().Aggregate(joined(t, usaRates, usaPopulation))
	require.NoError(t, err)

	assert.Equal(t, "57.2", stats.CrudeDeathRate.String())
	assert.Equal(t, "28.4", stats.ASDR.String())
	assert.Equal(t, "28.406856", stats.ExactASDR.String())
}

func TestAggregate_HandComputed(t *testing.T) {
	// GIVEN: Two bands
	//   rate 10/100k, 1000 thousand persons, weight 60%
	//   rate 50/100k,  500 thousand persons, weight 40%
	// THEN:
	//   deaths = 10*1000/100 + 50*500/100 = 100 + 250 = 350
	//   persons = 1,500,000, crude = 350/1.5e6*1e5 = 23.333.. -> 23.3
	//   asdr = 10*60/100 + 50*40/100 = 6 + 20 = 26.0

	rows := []generic.JoinedRecord{
		{AgeBand: "0-49", DeathRate: dec("10"), Weight: dec("60"), Count: dec("1000")},
		{AgeBand: "50+", DeathRate: dec("50"), Weight: dec("40"), Count: dec("500")},
	}
	stats, err := generic.NewAggregator().Aggregate(rows)
	require.NoError(t, err)

	assert.True(t, stats.TotalDeaths.Equal(dec("350")))
	assert.True(t, stats.TotalPersons.Equal(dec("1500000")))
	assert.Equal(t, "23.3", stats.CrudeDeathRate.String())
	assert.True(t, stats.ASDR.Equal(dec("26")))
}

func TestAggregate_ExactCrudeKeepsFullPrecision(t *testing.T) {
	// GIVEN: deaths = 0.01, persons = 3000, so crude = 1/3 per 100000
	rows := []generic.JoinedRecord{
		{AgeBand: "0-49", DeathRate: dec("1"), Weight: dec("50"), Count: dec("1")},
		{AgeBand: "50+", DeathRate: dec("0"), Weight: dec("50"), Count: dec("2")},
	}

	// WHEN: Aggregated
	stats, err := generic.NewAggregator().Aggregate(rows)
	require.NoError(t, err)

	// THEN: The exact rate has every digit the division precision allows
	assert.Equal(t, "0.3333333333333333", stats.ExactCrudeDeathRate.String())
	assert.Equal(t, "0.3", stats.CrudeDeathRate.String())
}

func TestAggregate_AllZeroRates(t *testing.T) {
	stats, err := generic.NewAggregator().Aggregate(joined(t, rateList("0"), usaPopulation))
	require.NoError(t, err)

	assert.True(t, stats.CrudeDeathRate.IsZero())
	assert.True(t, stats.ASDR.IsZero())
	assert.Equal(t, "0", stats.CrudeDeathRate.String())
}

func TestAggregate_Empty(t *testing.T) {
	_, err := generic.NewAggregator().Aggregate(nil)
	assert.ErrorIs(t, err, generic.ErrEmptyInput)

	_, err = generic.NewAggregator().Aggregate([]generic.JoinedRecord{})
	assert.ErrorIs(t, err, generic.ErrEmptyInput)
}

func TestAggregate_ZeroPopulation(t *testing.T) {
	rows := []generic.JoinedRecord{{AgeBand: "0-4", DeathRate: dec("1"), Weight: dec("100"), Count: dec("0")}}
	_, err := generic.NewAggregator().Aggregate(rows)
	assert.ErrorIs(t, err, generic.ErrInvalidValue)
}

func TestAggregate_NegativeRow(t *testing.T) {
	rows := []generic.JoinedRecord{{AgeBand: "0-4", DeathRate: dec("1"), Weight: dec("100"), Count: dec("-3")}}
	_, err := generic.NewAggregator().Aggregate(rows)
	assert.ErrorIs(t, err, generic.ErrInvalidValue)
}

func TestAggregate_RoundingModes(t *testing.T) {
	// ASDR = 0.25 exactly: half-up gives 0.3, half-even gives 0.2.
	rows := []generic.JoinedRecord{{AgeBand: "0-4", DeathRate: dec("0.25"), Weight: dec("100"), Count: dec("1")}}

	up, err := generic.Aggregator{Places: 1, Rounding: generic.RoundHalfUp}.Aggregate(rows)
	require.NoError(t, err)
	even, err := generic.Aggregator{Places: 1, Rounding: generic.RoundHalfEven}.Aggregate(rows)
	require.NoError(t, err)

	assert.Equal(t, "0.3", up.ASDR.String())
	assert.Equal(t, "0.2", even.ASDR.String())
}

func TestAggregate_UniformScalingInvariant(t *testing.T) {
	// Doubling every count changes neither statistic.
	base := joined(t, usaRates, usaPopulation)
	doubled := make([]generic.JoinedRecord, len(base))
	for i, r := range base {
		r.Count = r.Count.Mul(dec("2"))
		doubled[i] = r
	}

	a, err := generic.NewAggregator().Aggregate(base)
	require.NoError(t, err)
	b, err := generic.NewAggregator().Aggregate(doubled)
	require.NoError(t, err)

	assert.True(t, a.CrudeDeathRate.Equal(b.CrudeDeathRate))
	assert.True(t, a.ExactCrudeDeathRate.Equal(b.ExactCrudeDeathRate))
	assert.True(t, a.ExactASDR.Equal(b.ExactASDR))
}

func TestAggregate_CompositionChangesCrudeOnly(t *testing.T) {
	// Moving population from the youngest to the oldest band raises the
	// crude rate; ASDR does not read counts at all.
	base := joined(t, usaRates, usaPopulation)
	shifted := append([]generic.JoinedRecord(nil), base...)
	moved := dec("5000")
	shifted[0].Count = shifted[0].Count.Sub(moved)
	shifted[17].Count = shifted[17].Count.Add(moved)

	a, err := generic.NewAggregator().Aggregate(base)
	require.NoError(t, err)
	b, err := generic.NewAggregator().Aggregate(shifted)
	require.NoError(t, err)

	assert.True(t, b.ExactCrudeDeathRate.GreaterThan(a.ExactCrudeDeathRate))
	assert.True(t, a.ExactASDR.Equal(b.ExactASDR))
}

func TestAggregate_NonNegativeAndDeterministic(t *testing.T) {
	for _, rates := range [][]string{ugandaRates, usaRates, rateList("0"), rateList("1000")} {
		for _, pop := range [][]string{ugandaPopulation, usaPopulation} {
			rows := joined(t, rates, pop)
			a, err := generic.NewAggregator().Aggregate(rows)
			require.NoError(t, err)
			b, err := generic.NewAggregator().Aggregate(rows)
			require.NoError(t, err)

			assert.False(t, a.CrudeDeathRate.IsNegative())
			assert.False(t, a.ASDR.IsNegative())
			assert.Equal(t, a, b)
		}
	}
}

func TestParseRoundingMode(t *testing.T) {
	m, err := generic.ParseRoundingMode("")
	require.NoError(t, err)
	assert.Equal(t, generic.RoundHalfUp, m)

	m, err = generic.ParseRoundingMode("half_even")
	require.NoError(t, err)
	assert.Equal(t, generic.RoundHalfEven, m)

	_, err = generic.ParseRoundingMode("ceiling")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, generic.ErrInvalidValue))
}

func rateList(v string) []string {
	out := make([]string, generic.StandardTaxonomy().Len())
	for i := range out {
		out[i] = v
	}
	return out
}
