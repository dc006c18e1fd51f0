package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/i474232898/epi-age-comparison/internal/epidemic"
)

// DefaultPackageURL is the opendata.swiss package describing the federal
// COVID-19 datasets.
const DefaultPackageURL = "https://ckan.opendata.swiss/api/3/action/package_show?id=covid-19-schweiz"

// Resource identifiers inside the package.
const (
	DeathResourceID   = "weekly-death-age-range-json"
	HospResourceID    = "weekly-hosp-age-range-json"
	SymptomResourceID = "daily-vacc-symptoms-json"
)

// CKANCatalog resolves resources from a CKAN package_show endpoint.
type CKANCatalog struct {
	packageURL string
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
}

func NewCKANCatalog(client *http.Client, packageURL string, backoff BackoffConfig) *CKANCatalog {
	if packageURL == "" {
		packageURL = DefaultPackageURL
	}
	return &CKANCatalog{
		packageURL: packageURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: backoff,
		},
		circuit: newCircuitBreaker("ckan"),
	}
}

// Resolve looks up the death, hospitalization and symptom resources.
func (c *CKANCatalog) Resolve(ctx context.Context) (epidemic.Resources, error) {
	wrap := func(err error) error {
		return &FetchError{Resource: "package", URL: c.packageURL, Err: err}
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.packageURL, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return epidemic.Resources{}, wrap(err)
	}
	defer resp.Body.Close()

	var payload struct {
		Success bool `json:"success"`
		Result  struct {
			Resources []struct {
				Identifier  string `json:"identifier"`
				DownloadURL string `json:"download_url"`
			} `json:"resources"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return epidemic.Resources{}, wrap(err)
	}
	if !payload.Success {
		return epidemic.Resources{}, wrap(errors.New("package_show reported failure"))
	}

	urls := make(map[string]string, len(payload.Result.Resources))
	for _, r := range payload.Result.Resources {
		urls[r.Identifier] = r.DownloadURL
	}

	lookup := func(series epidemic.Series, id string) (epidemic.Resource, error) {
		u, ok := urls[id]
		if !ok || u == "" {
			return epidemic.Resource{}, &FetchError{
				Resource: id,
				URL:      c.packageURL,
				Err:      fmt.Errorf("%w: %s", ErrResourceNotFound, id),
			}
		}
		return epidemic.Resource{Series: series, Identifier: id, URL: u}, nil
	}

	var res epidemic.Resources
	if res.Deaths, err = lookup(epidemic.Deaths, DeathResourceID); err != nil {
		return epidemic.Resources{}, err
	}
	if res.Hospitalizations, err = lookup(epidemic.Hospitalizations, HospResourceID); err != nil {
		return epidemic.Resources{}, err
	}
	if res.Symptoms, err = lookup(epidemic.Symptoms, SymptomResourceID); err != nil {
		return epidemic.Resources{}, err
	}
	return res, nil
}
