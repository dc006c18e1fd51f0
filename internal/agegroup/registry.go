package agegroup

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownLabel is matched by every ReconciliationError via errors.Is.
var ErrUnknownLabel = errors.New("unknown age group label")

// ReconciliationError reports a raw age group label the registry cannot map
// onto a canonical bucket.
type ReconciliationError struct {
	Label string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile age group %q: %v", e.Label, ErrUnknownLabel)
}

func (e *ReconciliationError) Is(target error) bool {
	return target == ErrUnknownLabel
}

// Bucket is a canonical age interval [Low, High).
type Bucket struct {
	Low     int    `json:"low"`
	High    int    `json:"high"`
	Label   string `json:"label"`
	Unknown bool   `json:"unknown,omitempty"`
}

// Width returns the number of single years of age covered by the bucket.
func (b Bucket) Width() int {
	return b.High - b.Low
}

// Entry binds a raw source label to its bucket.
type Entry struct {
	Label  string
	Bucket Bucket
}

// Registry maps raw age group labels onto canonical buckets.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	byKey   map[string]Bucket
	labels  []string
	buckets []Bucket
}

// NewRegistry builds a registry from the given entries. Labels that collapse to
// the same normalized form must agree on their bucket.
func NewRegistry(entries []Entry) (*Registry, error) {
	r := &Registry{byKey: make(map[string]Bucket, len(entries))}
	seen := make(map[Bucket]bool)

	for _, e := range entries {
		if e.Bucket.High <= e.Bucket.Low {
			return nil, fmt.Errorf("age group %q: empty interval [%d, %d)", e.Label, e.Bucket.Low, e.Bucket.High)
		}
		key := normalize(e.Label)
		if key == "" {
			return nil, errors.New("age group label must not be empty")
		}
		if existing, ok := r.byKey[key]; ok {
			if existing != e.Bucket {
				return nil, fmt.Errorf("age group %q: conflicting buckets %+v and %+v", e.Label, existing, e.Bucket)
			}
			continue
		}
		r.byKey[key] = e.Bucket
		r.labels = append(r.labels, e.Label)
		if !seen[e.Bucket] {
			seen[e.Bucket] = true
			r.buckets = append(r.buckets, e.Bucket)
		}
	}

	sort.SliceStable(r.buckets, func(i, j int) bool {
		return bucketLess(r.buckets[i], r.buckets[j])
	})
	sort.SliceStable(r.labels, func(i, j int) bool {
		return bucketLess(r.byKey[normalize(r.labels[i])], r.byKey[normalize(r.labels[j])])
	})

	return r, nil
}

// Resolve returns the canonical bucket for a raw label.
func (r *Registry) Resolve(label string) (Bucket, error) {
	b, ok := r.byKey[normalize(label)]
	if !ok {
		return Bucket{}, &ReconciliationError{Label: label}
	}
	return b, nil
}

// Validate fails on the first label that does not resolve.
func (r *Registry) Validate(labels ...string) error {
	for _, l := range labels {
		if _, err := r.Resolve(l); err != nil {
			return err
		}
	}
	return nil
}

// Buckets returns the distinct canonical buckets ordered by lower bound.
func (r *Registry) Buckets() []Bucket {
	out := make([]Bucket, len(r.buckets))
	copy(out, r.buckets)
	return out
}

// Labels returns every raw label known to the registry, in bucket order.
func (r *Registry) Labels() []string {
	out := make([]string, len(r.labels))
	copy(out, r.labels)
	return out
}

// Less orders two buckets the way Buckets does.
func Less(a, b Bucket) bool {
	return bucketLess(a, b)
}

func bucketLess(a, b Bucket) bool {
	if a.Low != b.Low {
		return a.Low < b.Low
	}
	if a.High != b.High {
		return a.High < b.High
	}
	return a.Label < b.Label
}

// normalize drops all whitespace so "0 - 9" and "0-9" are synonyms.
func normalize(label string) string {
	return strings.Join(strings.Fields(label), "")
}
