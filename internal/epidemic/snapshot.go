package epidemic

import "time"

// SnapshotAt sums the values of all rows in region at dateKey, grouped by raw
// age group label. Region and key matching are exact. Duplicate rows for one
// label are added up. A snapshot with no matching rows is empty, not an error.
func SnapshotAt(rows []RawRecord, dateKey, region string) Snapshot {
	snap := make(Snapshot)
	for _, r := range rows {
		if r.Region != region || r.DateKey != dateKey {
			continue
		}
		snap[r.AgeGroup] += r.Value
	}
	return snap
}

// Diff computes end minus start for every label present in end. Labels missing
// from start count from zero; labels only present in start are dropped.
func Diff(start, end Snapshot) SeriesDiff {
	out := make(SeriesDiff, len(end))
	for label, v := range end {
		out[label] = v - start[label]
	}
	return out
}

// Snapshots holds the start and end snapshot of one series.
type Snapshots struct {
	Start Snapshot
	End   Snapshot
}

// Diff is Diff(Start, End).
func (s Snapshots) Diff() SeriesDiff {
	return Diff(s.Start, s.End)
}

// SeriesSnapshots extracts the start and end snapshots of a series, keying the
// dates the way the series reports.
func SeriesSnapshots(s Series, rows []RawRecord, region string, start, end time.Time) Snapshots {
	kind := s.DateKind()
	return Snapshots{
		Start: SnapshotAt(rows, kind.Key(start), region),
		End:   SnapshotAt(rows, kind.Key(end), region),
	}
}

// BuildComparison diffs the three series between start and end for region.
// Symptom rows must already be restricted with FilterAdverseEvents.
// Results are returned as hospitalizations, deaths, symptoms.
func BuildComparison(deathRows, hospRows, symptomRows []RawRecord, region string, start, end time.Time) (SeriesDiff, SeriesDiff, SeriesDiff) {
	return SeriesSnapshots(Hospitalizations, hospRows, region, start, end).Diff(),
		SeriesSnapshots(Deaths, deathRows, region, start, end).Diff(),
		SeriesSnapshots(Symptoms, symptomRows, region, start, end).Diff()
}
