package sources

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/epi-age-comparison/internal/epidemic"
	"github.com/i474232898/epi-age-comparison/internal/logger"
)

// FetchObserver is notified after every resource download.
type FetchObserver interface {
	ObserveFetch(series string, started time.Time, err error)
}

// HTTPFetcher downloads series resources as JSON arrays.
type HTTPFetcher struct {
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
	observer FetchObserver
	log      *logger.Logger
}

// NewHTTPFetcher creates a fetcher sharing client across all resources.
// observer may be nil.
func NewHTTPFetcher(client *http.Client, backoff BackoffConfig, observer FetchObserver, log *logger.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: backoff,
		},
		circuit:  newCircuitBreaker("series-download"),
		observer: observer,
		log:      log,
	}
}

// Fetch downloads and decodes all rows of res. Every failure is a *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, res epidemic.Resource) (rows []epidemic.RawRecord, err error) {
	started := time.Now()
	defer func() {
		if f.observer != nil {
			f.observer.ObserveFetch(string(res.Series), started, err)
		}
	}()

	wrap := func(err error) error {
		return &FetchError{Resource: res.Identifier, URL: res.URL, Err: err}
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.URL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, f.httpCfg, f.circuit, buildRequest)
	if err != nil {
		return nil, wrap(err)
	}
	defer resp.Body.Close()

	rows, err = decodeRecords(resp.Body, schemaFor(res.Series))
	if err != nil {
		return nil, wrap(err)
	}

	f.log.Debug("resource downloaded", "resource", res.Identifier, "rows", len(rows), "elapsed", time.Since(started))
	return rows, nil
}
