package epidemic

import (
	"context"
)

// Resource is a downloadable row set of one series.
type Resource struct {
	Series     Series
	Identifier string
	URL        string
}

// Resources are the three resources a comparison needs.
type Resources struct {
	Deaths           Resource
	Hospitalizations Resource
	Symptoms         Resource
}

// Catalog resolves the dataset to its concrete resources (e.g. a CKAN package).
type Catalog interface {
	Resolve(ctx context.Context) (Resources, error)
}

// Fetcher returns the fully materialized rows of a resource. Transport,
// retries and decoding belong to the implementation.
type Fetcher interface {
	Fetch(ctx context.Context, res Resource) ([]RawRecord, error)
}

// Store persists computed comparisons.
type Store interface {
	SaveComparison(c Comparison) error
	GetLatest(region string) (Comparison, error)
	List(region string) ([]Comparison, error)
}

// Reconciler checks that every age group label maps to a canonical bucket.
type Reconciler interface {
	Validate(labels ...string) error
}

// Recorder receives service level measurements.
type Recorder interface {
	ComparisonComputed(region string)
	ReconciliationFailed(series string)
}
