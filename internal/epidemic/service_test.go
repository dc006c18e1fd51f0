package epidemic_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/i474232898/epi-age-comparison/internal/agegroup"
	"github.com/i474232898/epi-age-comparison/internal/epidemic"
	"github.com/i474232898/epi-age-comparison/internal/epidemic/sources"
	"github.com/i474232898/epi-age-comparison/internal/logger"
	"github.com/i474232898/epi-age-comparison/internal/store"
)

var (
	startDate = time.Date(2021, 3, 23, 0, 0, 0, 0, time.UTC)
	endDate   = time.Date(2022, 4, 5, 0, 0, 0, 0, time.UTC)
	fixedNow  = time.Date(2022, 4, 6, 8, 0, 0, 0, time.UTC)
)

type catalogStub struct {
	err error
}

func (c catalogStub) Resolve(context.Context) (epidemic.Resources, error) {
	if c.err != nil {
		return epidemic.Resources{}, c.err
	}
	return epidemic.Resources{
		Deaths:           epidemic.Resource{Series: epidemic.Deaths, Identifier: "death"},
		Hospitalizations: epidemic.Resource{Series: epidemic.Hospitalizations, Identifier: "hosp"},
		Symptoms:         epidemic.Resource{Series: epidemic.Symptoms, Identifier: "sym"},
	}, nil
}

type fetcherStub struct {
	mu    sync.Mutex
	rows  map[epidemic.Series][]epidemic.RawRecord
	errs  map[epidemic.Series]error
	calls []epidemic.Series
}

func (f *fetcherStub) Fetch(_ context.Context, res epidemic.Resource) ([]epidemic.RawRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, res.Series)
	f.mu.Unlock()
	if err := f.errs[res.Series]; err != nil {
		return nil, err
	}
	return f.rows[res.Series], nil
}

type recorderStub struct {
	mu       sync.Mutex
	computed []string
	failed   []string
}

func (r *recorderStub) ComparisonComputed(region string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.computed = append(r.computed, region)
}

func (r *recorderStub) ReconciliationFailed(series string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, series)
}

func seriesRows() map[epidemic.Series][]epidemic.RawRecord {
	return map[epidemic.Series][]epidemic.RawRecord{
		epidemic.Deaths: {
			{AgeGroup: "80+", Region: "CHFL", DateKey: "202112", Value: 9000},
			{AgeGroup: "80+", Region: "CHFL", DateKey: "202214", Value: 10500},
		},
		epidemic.Hospitalizations: {
			{AgeGroup: "50 - 59", Region: "CHFL", DateKey: "202112", Value: 100},
			{AgeGroup: "50 - 59", Region: "CHFL", DateKey: "202214", Value: 160},
		},
		epidemic.Symptoms: {
			{AgeGroup: "18 - 44", Region: "CHFL", DateKey: "2022-04-05", Value: 25, Vaccine: "all", Severity: "all"},
			{AgeGroup: "all", Region: "CHFL", DateKey: "2022-04-05", Value: 999, Vaccine: "all", Severity: "all"},
			{AgeGroup: "18 - 44", Region: "CHFL", DateKey: "2022-04-05", Value: 7, Vaccine: "moderna", Severity: "all"},
		},
	}
}

func newService(f *fetcherStub, c epidemic.Catalog, rec *recorderStub) (*epidemic.Service, *store.MemoryStore) {
	st := store.NewMemoryStore(10)
	svc := epidemic.NewService(c, f, st, agegroup.Default(), logger.Nop(),
		epidemic.WithRecorder(rec),
		epidemic.WithClock(func() time.Time { return fixedNow }))
	return svc, st
}

func TestCompare(t *testing.T) {
	f := &fetcherStub{rows: seriesRows()}
	rec := &recorderStub{}
	svc, st := newService(f, catalogStub{}, rec)

	c, err := svc.Compare(context.Background(), "CHFL", startDate, endDate)
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "CHFL", c.Region)
	assert.Equal(t, fixedNow, c.ComputedAt)
	assert.Equal(t, epidemic.SeriesDiff{"50 - 59": 60}, c.Hospitalizations)
	assert.Equal(t, epidemic.SeriesDiff{"80+": 1500}, c.Deaths)
	// Only the aggregate row passes the adverse event pre-filter.
	assert.Equal(t, epidemic.SeriesDiff{"18 - 44": 25}, c.Symptoms)

	assert.ElementsMatch(t, []epidemic.Series{epidemic.Deaths, epidemic.Hospitalizations, epidemic.Symptoms}, f.calls)
	assert.Equal(t, []string{"CHFL"}, rec.computed)

	latest, err := st.GetLatest("CHFL")
	require.NoError(t, err)
	assert.Equal(t, c, latest)

	history, err := svc.History("CHFL")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	fromSvc, err := svc.Latest("CHFL")
	require.NoError(t, err)
	assert.Equal(t, c.ID, fromSvc.ID)
}

func TestCompareWarnsOnMissingSnapshots(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rows := seriesRows()
	svc := epidemic.NewService(catalogStub{}, &fetcherStub{rows: rows}, store.NewMemoryStore(10), agegroup.Default(),
		&logger.Logger{SugaredLogger: zap.New(core).Sugar()},
		epidemic.WithClock(func() time.Time { return fixedNow }))

	t.Run("only the symptom start snapshot is empty", func(t *testing.T) {
		c, err := svc.Compare(context.Background(), "CHFL", startDate, endDate)
		require.NoError(t, err)

		warnings := logs.TakeAll()
		require.Len(t, warnings, 1)
		assert.Equal(t, "no data reported at start", warnings[0].Message)
		assert.EqualValues(t, "symptoms", warnings[0].ContextMap()["series"])
		assert.Equal(t, "2021-03-23", warnings[0].ContextMap()["key"])

		hosp, deaths, symptoms := epidemic.BuildComparison(rows[epidemic.Deaths], rows[epidemic.Hospitalizations],
			epidemic.FilterAdverseEvents(rows[epidemic.Symptoms]), "CHFL", startDate, endDate)
		assert.Equal(t, hosp, c.Hospitalizations)
		assert.Equal(t, deaths, c.Deaths)
		assert.Equal(t, symptoms, c.Symptoms)
	})

	t.Run("region without data warns for every snapshot", func(t *testing.T) {
		_, err := svc.Compare(context.Background(), "CH", startDate, endDate)
		require.NoError(t, err)
		assert.Equal(t, 3, logs.FilterMessage("no data reported at start").Len())
		assert.Equal(t, 3, logs.FilterMessage("no data reported at end").Len())
	})
}

func TestCompareRegionWithoutData(t *testing.T) {
	f := &fetcherStub{rows: seriesRows()}
	svc, _ := newService(f, catalogStub{}, &recorderStub{})

	c, err := svc.Compare(context.Background(), "CH", startDate, endDate)
	require.NoError(t, err)
	assert.Empty(t, c.Deaths)
	assert.Empty(t, c.Hospitalizations)
	assert.Empty(t, c.Symptoms)
}

func TestCompareFetchErrorIsPropagated(t *testing.T) {
	fetchErr := &sources.FetchError{Resource: "hosp", Err: errors.New("connection reset")}
	f := &fetcherStub{rows: seriesRows(), errs: map[epidemic.Series]error{epidemic.Hospitalizations: fetchErr}}
	rec := &recorderStub{}
	svc, st := newService(f, catalogStub{}, rec)

	_, err := svc.Compare(context.Background(), "CHFL", startDate, endDate)

	var got *sources.FetchError
	require.True(t, errors.As(err, &got))
	assert.Same(t, fetchErr, got)

	var recErr *agegroup.ReconciliationError
	assert.False(t, errors.As(err, &recErr))

	_, err = st.GetLatest("CHFL")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, rec.computed)
}

func TestCompareCatalogErrorIsPropagated(t *testing.T) {
	catErr := &sources.FetchError{Resource: "package", Err: sources.ErrResourceNotFound}
	f := &fetcherStub{rows: seriesRows()}
	svc, _ := newService(f, catalogStub{err: catErr}, &recorderStub{})

	_, err := svc.Compare(context.Background(), "CHFL", startDate, endDate)
	assert.ErrorIs(t, err, sources.ErrResourceNotFound)
	assert.Empty(t, f.calls)
}

func TestCompareUnknownLabelFails(t *testing.T) {
	rows := seriesRows()
	rows[epidemic.Deaths] = append(rows[epidemic.Deaths],
		epidemic.RawRecord{AgeGroup: "90+", Region: "CHFL", DateKey: "202214", Value: 3})
	f := &fetcherStub{rows: rows}
	rec := &recorderStub{}
	svc, st := newService(f, catalogStub{}, rec)

	_, err := svc.Compare(context.Background(), "CHFL", startDate, endDate)

	var recErr *agegroup.ReconciliationError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, "90+", recErr.Label)
	assert.Equal(t, []string{"deaths"}, rec.failed)

	_, err = st.GetLatest("CHFL")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompareRejectsInvalidRequests(t *testing.T) {
	f := &fetcherStub{rows: seriesRows()}
	svc, _ := newService(f, catalogStub{}, &recorderStub{})

	_, err := svc.Compare(context.Background(), "", startDate, endDate)
	assert.ErrorIs(t, err, epidemic.ErrInvalidRequest)

	_, err = svc.Compare(context.Background(), "CHFL", endDate, startDate)
	assert.ErrorIs(t, err, epidemic.ErrInvalidRequest)

	assert.Empty(t, f.calls)
}
