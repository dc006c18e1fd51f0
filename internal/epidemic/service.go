package epidemic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/epi-age-comparison/internal/logger"
)

var (
	// ErrInvalidRequest marks comparison requests rejected before any fetch.
	ErrInvalidRequest = errors.New("invalid comparison request")
)

// Service orchestrates fetching the three series, computing the comparison and
// persisting it.
type Service struct {
	catalog  Catalog
	fetcher  Fetcher
	store    Store
	registry Reconciler
	recorder Recorder
	log      *logger.Logger
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithClock overrides the clock used to stamp comparisons.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service.
func NewService(catalog Catalog, fetcher Fetcher, store Store, registry Reconciler, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		catalog:  catalog,
		fetcher:  fetcher,
		store:    store,
		registry: registry,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compare fetches all three series for region, computes the net change between
// start and end and stores the result. Fetch errors are returned unmodified; an
// age group label the registry does not know fails the whole comparison.
func (s *Service) Compare(ctx context.Context, region string, start, end time.Time) (Comparison, error) {
	if region == "" {
		return Comparison{}, fmt.Errorf("%w: region is required", ErrInvalidRequest)
	}
	if end.Before(start) {
		return Comparison{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRequest,
			end.Format(DateLayout), start.Format(DateLayout))
	}

	log := s.log.With("region", region, "start", start.Format(DateLayout), "end", end.Format(DateLayout))
	log.Debug("comparison requested")

	res, err := s.catalog.Resolve(ctx)
	if err != nil {
		return Comparison{}, err
	}

	var deathRows, hospRows, symptomRows []RawRecord
	g, gctx := errgroup.WithContext(ctx)
	fetch := func(r Resource, dst *[]RawRecord) {
		g.Go(func() error {
			rows, err := s.fetcher.Fetch(gctx, r)
			if err != nil {
				return err
			}
			*dst = rows
			log.Debug("series fetched", "series", r.Series, "rows", len(rows))
			return nil
		})
	}
	fetch(res.Deaths, &deathRows)
	fetch(res.Hospitalizations, &hospRows)
	fetch(res.Symptoms, &symptomRows)
	if err := g.Wait(); err != nil {
		log.Error("series fetch failed", "error", err)
		return Comparison{}, err
	}

	symptomRows = FilterAdverseEvents(symptomRows)

	// Each row set is scanned once; warnings and diffs share the snapshots.
	hospSnaps := SeriesSnapshots(Hospitalizations, hospRows, region, start, end)
	deathSnaps := SeriesSnapshots(Deaths, deathRows, region, start, end)
	symptomSnaps := SeriesSnapshots(Symptoms, symptomRows, region, start, end)
	warnMissing(log, Hospitalizations, hospSnaps, start, end)
	warnMissing(log, Deaths, deathSnaps, start, end)
	warnMissing(log, Symptoms, symptomSnaps, start, end)

	hosp, deaths, symptoms := hospSnaps.Diff(), deathSnaps.Diff(), symptomSnaps.Diff()

	c := Comparison{
		ID:               uuid.NewString(),
		Region:           region,
		Start:            start,
		End:              end,
		ComputedAt:       s.now().UTC(),
		Hospitalizations: hosp,
		Deaths:           deaths,
		Symptoms:         symptoms,
	}

	for _, series := range []Series{Hospitalizations, Deaths, Symptoms} {
		if err := s.registry.Validate(c.Diff(series).Labels()...); err != nil {
			if s.recorder != nil {
				s.recorder.ReconciliationFailed(string(series))
			}
			log.Error("age group reconciliation failed", "series", series, "error", err)
			return Comparison{}, fmt.Errorf("%s: %w", series, err)
		}
	}

	if err := s.store.SaveComparison(c); err != nil {
		return Comparison{}, fmt.Errorf("save comparison: %w", err)
	}
	if s.recorder != nil {
		s.recorder.ComparisonComputed(region)
	}
	log.Info("comparison computed", "id", c.ID,
		"hospitalizationGroups", len(hosp), "deathGroups", len(deaths), "symptomGroups", len(symptoms))
	return c, nil
}

// warnMissing logs empty snapshots. Missing data is not an error.
func warnMissing(log *logger.Logger, series Series, snaps Snapshots, start, end time.Time) {
	kind := series.DateKind()
	if snaps.Start.Empty() {
		log.Warn("no data reported at start", "series", series, "key", kind.Key(start))
	}
	if snaps.End.Empty() {
		log.Warn("no data reported at end", "series", series, "key", kind.Key(end))
	}
}

// Latest delegates to the underlying store.
func (s *Service) Latest(region string) (Comparison, error) {
	return s.store.GetLatest(region)
}

// History delegates to the underlying store.
func (s *Service) History(region string) ([]Comparison, error) {
	return s.store.List(region)
}
