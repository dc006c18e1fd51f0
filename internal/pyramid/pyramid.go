// Package pyramid lays out a comparison as an age pyramid: deaths and
// hospitalizations stacked on the left, adverse event reports on the right,
// every bar normalized to a count per single year of age.
package pyramid

import (
	"fmt"
	"sort"

	"github.com/i474232898/epi-age-comparison/internal/agegroup"
	"github.com/i474232898/epi-age-comparison/internal/epidemic"
)

// Resolver maps a raw age group label to its canonical bucket.
type Resolver interface {
	Resolve(label string) (agegroup.Bucket, error)
}

// Bar is one horizontal bar. Offset is where the bar starts on the value axis
// and Rate its signed extent; left side bars have negative extents.
type Bar struct {
	Series  epidemic.Series `json:"series"`
	Label   string          `json:"label"`
	Low     int             `json:"low"`
	Height  int             `json:"height"`
	Count   int64           `json:"count"`
	Rate    float64         `json:"rate"`
	Offset  float64         `json:"offset"`
	Unknown bool            `json:"unknown,omitempty"`
}

// Pyramid is the complete bar layout of one comparison.
type Pyramid struct {
	Region string `json:"region"`
	Left   []Bar  `json:"left"`
	Right  []Bar  `json:"right"`
}

type resolved struct {
	label  string
	bucket agegroup.Bucket
}

// Build resolves every label of c and lays out the bars ordered by bucket.
// An unresolvable label fails with *agegroup.ReconciliationError.
func Build(r Resolver, c epidemic.Comparison) (Pyramid, error) {
	p := Pyramid{Region: c.Region}

	// Deaths sit next to the axis, hospitalizations are stacked outside them.
	left, err := sortedLabels(r, c.Deaths, c.Hospitalizations)
	if err != nil {
		return Pyramid{}, err
	}
	for _, rl := range left {
		deathBar, hasDeath := bar(epidemic.Deaths, rl, c.Deaths, -1, 0)
		if hasDeath {
			p.Left = append(p.Left, deathBar)
		}
		if hospBar, ok := bar(epidemic.Hospitalizations, rl, c.Hospitalizations, -1, deathBar.Rate); ok {
			p.Left = append(p.Left, hospBar)
		}
	}

	right, err := sortedLabels(r, c.Symptoms)
	if err != nil {
		return Pyramid{}, err
	}
	for _, rl := range right {
		if b, ok := bar(epidemic.Symptoms, rl, c.Symptoms, 1, 0); ok {
			p.Right = append(p.Right, b)
		}
	}

	return p, nil
}

func bar(s epidemic.Series, rl resolved, diff epidemic.SeriesDiff, sign float64, offset float64) (Bar, bool) {
	count, ok := diff[rl.label]
	if !ok {
		return Bar{}, false
	}
	height := rl.bucket.Width()
	return Bar{
		Series:  s,
		Label:   rl.label,
		Low:     rl.bucket.Low,
		Height:  height,
		Count:   count,
		Rate:    sign * float64(count) / float64(height),
		Offset:  offset,
		Unknown: rl.bucket.Unknown,
	}, true
}

// sortedLabels resolves the union of labels of diffs, known ages first by
// lower bound, unknown-age sentinels last.
func sortedLabels(r Resolver, diffs ...epidemic.SeriesDiff) ([]resolved, error) {
	seen := make(map[string]bool)
	var out []resolved
	for _, d := range diffs {
		for label := range d {
			if seen[label] {
				continue
			}
			seen[label] = true
			b, err := r.Resolve(label)
			if err != nil {
				return nil, fmt.Errorf("pyramid: %w", err)
			}
			out = append(out, resolved{label: label, bucket: b})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.bucket.Unknown != b.bucket.Unknown {
			return !a.bucket.Unknown
		}
		if a.bucket != b.bucket {
			return agegroup.Less(a.bucket, b.bucket)
		}
		return a.label < b.label
	})
	return out, nil
}
