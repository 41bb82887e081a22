package generic_test

import (
	"github.com/shopspring/decimal"

	"github.com/warp/copd-rates/generic"
)

// =============================================================================
// TEST FIXTURES - 2019 study values, coarse and fine bands
// =============================================================================

var fineBands = []generic.AgeBand{
	"0-4", "5-9", "10-14", "15-19", "20-24", "25-29", "30-34", "35-39",
	"40-44", "45-49", "50-54", "55-59", "60-64", "65-69", "70-74",
	"75-79", "80-84", "85-89", "90-94", "95-99", "100+",
}

var whoStandard = []string{
	"8.86", "8.69", "8.60", "8.47", "8.22", "7.93", "7.61", "7.15", "6.59",
	"6.04", "5.37", "4.55", "3.72", "2.96", "2.21", "1.52", "0.91", "0.63",
}

var ugandaRates = []string{
	"0.40", "0.17", "0.07", "0.23", "0.38", "0.40", "0.75", "1.11", "2.03",
	"5.50", "13.23", "33.17", "69.45", "120.48", "229.22", "340.51", "506.48", "749.12",
}

var usaRates = []string{
	"0.04", "0.02", "0.02", "0.02", "0.06", "0.12", "0.31", "0.59", "1.50",
	"4.23", "14.94", "39.36", "70.30", "114.58", "183.01", "317.30", "488.92", "959.85",
}

var ugandaPopulation = []string{
	"7812.406", "6934.215", "6128.883", "5104.377", "4087.162", "3215.748", "2498.621",
	"1953.509", "1497.264", "1034.849", "766.212", "557.041", "402.395", "286.674",
	"193.219", "116.149", "58.260", "22.426", "6.277", "1.247", "0.177",
}

var usaPopulation = []string{
	"19558.914", "20228.551", "20964.271", "21236.127", "22165.374", "23503.960", "22489.231",
	"21596.703", "20062.218", "20464.049", "20867.126", "21818.509", "20321.188", "16124.793",
	"12963.184", "8972.512", "5961.958", "3737.832", "1776.795", "544.460", "90.627",
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func weights(values []string) []generic.StandardWeight {
	bands := generic.StandardTaxonomy().Bands
	out := make([]generic.StandardWeight, len(bands))
	for i, b := range bands {
		out[i] = generic.StandardWeight{AgeBand: b, Weight: dec(values[i])}
	}
	return out
}

func mortality(values []string) []generic.MortalityRecord {
	bands := generic.StandardTaxonomy().Bands
	out := make([]generic.MortalityRecord, len(bands))
	for i, b := range bands {
		out[i] = generic.MortalityRecord{AgeBand: b, DeathRate: dec(values[i])}
	}
	return out
}

func uniformMortality(rate string) []generic.MortalityRecord {
	vals := make([]string, generic.StandardTaxonomy().Len())
	for i := range vals {
		vals[i] = rate
	}
	return mortality(vals)
}

func finePopulation(id generic.PopulationID, counts []string) []generic.PopulationRecord {
	out := make([]generic.PopulationRecord, len(fineBands))
	for i, b := range fineBands {
		out[i] = generic.PopulationRecord{PopulationID: id, AgeBand: b, Count: dec(counts[i])}
	}
	return out
}

// coarsePopulation reconciles a fine fixture, failing loudly if it cannot.
func coarsePopulation(id generic.PopulationID, counts []string) []generic.PopulationRecord {
	out, err := generic.NewReconciler(generic.StandardTaxonomy()).Reconcile(finePopulation(id, counts))
	if err != nil {
		panic(err)
	}
	return out
}

func without(records []generic.PopulationRecord, band generic.AgeBand) []generic.PopulationRecord {
	var out []generic.PopulationRecord
	for _, r := range records {
		if r.AgeBand != band {
			out = append(out, r)
		}
	}
	return out
}
