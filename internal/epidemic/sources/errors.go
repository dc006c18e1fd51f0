package sources

import (
	"errors"
	"fmt"
)

// ErrResourceNotFound is wrapped when the catalog lacks a required resource.
var ErrResourceNotFound = errors.New("resource not found in catalog")

// FetchError reports a transport, status or decoding failure while retrieving
// a resource. It is never produced for age group reconciliation problems.
type FetchError struct {
	Resource string
	URL      string
	Err      error
}

func (e *FetchError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.Resource, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
