package agegroup

// openEndedTop is the exclusive upper bound used for "80+" style buckets, so
// the last included year of age is 89 and per-year rates stay finite.
const openEndedTop = 90

var (
	bucketUnknownDE = Bucket{Low: 90, High: 100, Label: "Unbekannt", Unknown: true}
	bucketUnknownEN = Bucket{Low: 90, High: 100, Label: "unknown", Unknown: true}
)

// defaultEntries covers the decade bands of the weekly hospitalization and
// death series and the WHO-style bands of the adverse event series.
func defaultEntries() []Entry {
	decade := func(label string, low int) Entry {
		return Entry{Label: label, Bucket: Bucket{Low: low, High: low + 10, Label: label}}
	}
	band := func(label string, low, high int) Entry {
		return Entry{Label: label, Bucket: Bucket{Low: low, High: high, Label: label}}
	}

	return []Entry{
		decade("0 - 9", 0),
		decade("10 - 19", 10),
		decade("20 - 29", 20),
		decade("30 - 39", 30),
		decade("40 - 49", 40),
		decade("50 - 59", 50),
		decade("60 - 69", 60),
		decade("70 - 79", 70),
		band("80+", 80, openEndedTop),
		{Label: "Unbekannt", Bucket: bucketUnknownDE},

		band("0 - 1", 0, 2),
		band("2 - 11", 2, 12),
		band("12 - 17", 12, 18),
		band("18 - 44", 18, 45),
		band("45 - 64", 45, 65),
		band("65 - 74", 65, 75),
		band("75+", 75, openEndedTop),
		{Label: "unknown", Bucket: bucketUnknownEN},
	}
}

// Default returns the registry for the Swiss federal COVID-19 datasets.
func Default() *Registry {
	r, err := NewRegistry(defaultEntries())
	if err != nil {
		panic("agegroup: invalid default table: " + err.Error())
	}
	return r
}
