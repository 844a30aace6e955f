package integrations

import (
	"errors"
	"net/http"
	"net/url"
	"time"
)

const (
	httpTimeout     = 20 * time.Second
	downloadTimeout = 300 * time.Second
)

var (
	// ErrNotFound is returned when a project or resource doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, non-2xx responses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates an HTTP client with a standard timeout for registry requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// NewDownloadClient creates an HTTP client for artifact downloads. Its
// timeout bounds the whole transfer, so it is much longer than the
// metadata timeout.
func NewDownloadClient() *http.Client {
	return &http.Client{Timeout: downloadTimeout}
}

// WithQuery appends params to base. Empty values are dropped.
func WithQuery(base string, params url.Values) string {
	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}
