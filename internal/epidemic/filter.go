package epidemic

// AllCategory is the pseudo-category the adverse event series uses for
// cross-sectional totals.
const AllCategory = "all"

// FilterAdverseEvents keeps the per-age-group rows aggregated over all vaccines
// and all severities. Rows that are themselves totals over age groups are
// dropped so snapshots do not double count.
func FilterAdverseEvents(rows []RawRecord) []RawRecord {
	out := make([]RawRecord, 0, len(rows))
	for _, r := range rows {
		if r.Vaccine == AllCategory && r.Severity == AllCategory && r.AgeGroup != AllCategory {
			out = append(out, r)
		}
	}
	return out
}
