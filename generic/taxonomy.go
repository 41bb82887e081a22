package generic

// Taxonomy is the coarse age-band categorisation shared by the mortality
// and standard-weight sources. It ends in one open band that absorbs a
// fixed set of fine bands from the population source.
type Taxonomy struct {
	Bands     []AgeBand // coarse bands in display order, OpenBand last
	OpenBand  AgeBand   // e.g. "85+"
	Collapsed []AgeBand // fine bands summed into OpenBand
}

// StandardTaxonomy returns the 18-band taxonomy used by the WHO world
// standard population: 5-year bands up to 80-84, then 85+.
func StandardTaxonomy() Taxonomy {
	return Taxonomy{
		Bands: []AgeBand{
			"0-4", "5-9", "10-14", "15-19", "20-24", "25-29", "30-34", "35-39",
			"40-44", "45-49", "50-54", "55-59", "60-64", "65-69", "70-74",
			"75-79", "80-84", "85+",
		},
		OpenBand:  "85+",
		Collapsed: []AgeBand{"85-89", "90-94", "95-99", "100+"},
	}
}

// Len returns the number of coarse bands.
func (t Taxonomy) Len() int { return len(t.Bands) }

// Contains reports whether b is a coarse band.
func (t Taxonomy) Contains(b AgeBand) bool {
	return indexOf(t.Bands, b) >= 0
}

// IsCollapsed reports whether b is one of the fine bands summed into the
// open band.
func (t Taxonomy) IsCollapsed(b AgeBand) bool {
	return indexOf(t.Collapsed, b) >= 0
}

// OpenLowerBound is the first age of the open band (85 for "85+").
func (t Taxonomy) OpenLowerBound() int {
	n, _ := t.OpenBand.LowerBound()
	return n
}

// Position returns the display index of a coarse band, or -1.
func (t Taxonomy) Position(b AgeBand) int {
	return indexOf(t.Bands, b)
}

func indexOf(bands []AgeBand, b AgeBand) int {
	for i, x := range bands {
		if x == b {
			return i
		}
	}
	return -1
}
