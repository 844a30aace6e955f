package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/matzehuels/modfetch/pkg/cache"
	"github.com/matzehuels/modfetch/pkg/httputil"
	"github.com/matzehuels/modfetch/pkg/observability"
)

// Client provides shared HTTP functionality for all registry API clients.
// It handles caching, retry logic, and common request headers.
type Client struct {
	http       *http.Client
	stream     *http.Client
	cache      cache.Cache
	keyer      cache.Keyer
	namespace  string
	ttl        time.Duration
	headers    map[string]string
	attempts   int
	retryDelay time.Duration
}

// NewClient creates a Client with the given cache backend and default headers.
// Cache keys are scoped by namespace (e.g. "curseforge") and live for ttl.
// Headers are applied to all requests made through this client, downloads
// included. Pass nil for headers if no default headers are needed, and nil
// for backend to disable caching.
func NewClient(backend cache.Cache, namespace string, ttl time.Duration, headers map[string]string) *Client {
	if backend == nil {
		backend = cache.NewNullCache()
	}
	return &Client{
		http:       NewHTTPClient(),
		stream:     NewDownloadClient(),
		cache:      backend,
		keyer:      cache.NewDefaultKeyer(),
		namespace:  namespace,
		ttl:        ttl,
		headers:    headers,
		attempts:   3,
		retryDelay: time.Second,
	}
}

// SetHTTPClient replaces the HTTP client used for both metadata requests
// and downloads.
func (c *Client) SetHTTPClient(h *http.Client) {
	c.http = h
	c.stream = h
}

// SetRetry overrides the retry policy for transient failures.
func (c *Client) SetRetry(attempts int, delay time.Duration) {
	c.attempts = attempts
	c.retryDelay = delay
}

// Cached retrieves a value from cache or executes fetch and caches the result.
// The fetch function should populate v; on success, v is stored in the cache.
// Cache failures never fail the call.
func (c *Client) Cached(ctx context.Context, key string, v any, fetch func() error) error {
	k := c.keyer.HTTPKey(c.namespace, key)
	hooks := observability.Cache()
	if data, ok, err := c.cache.Get(ctx, k); err == nil && ok {
		if json.Unmarshal(data, v) == nil {
			hooks.OnCacheHit(ctx, c.namespace)
			return nil
		}
	}
	hooks.OnCacheMiss(ctx, c.namespace)
	if err := httputil.Retry(ctx, c.attempts, c.retryDelay, fetch); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		if c.cache.Set(ctx, k, data, c.ttl) == nil {
			hooks.OnCacheSet(ctx, c.namespace, len(data))
		}
	}
	return nil
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
// It uses the client's default headers.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) error {
	body, _, err := c.doRequest(ctx, c.http, url, headers)
	if err != nil {
		return err
	}
	defer body.Close()
	return json.NewDecoder(body).Decode(v)
}

// GetText performs an HTTP GET request and returns the response body as a string.
// Used for HTML pages such as collection listings.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	body, _, err := c.doRequest(ctx, c.http, url, nil)
	if err != nil {
		return "", err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	return string(data), err
}

// Stream opens url for a download and returns the body along with the
// declared content length (-1 if the server did not send one). The caller
// must close the body. Streams are never cached or retried.
func (c *Client) Stream(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	return c.doRequest(ctx, c.stream, url, nil)
}

func (c *Client) doRequest(ctx context.Context, hc *http.Client, url string, headers map[string]string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := hc.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, 0, httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	detail := describe(resp.Body)
	switch {
	case code == http.StatusNotFound:
		return fmt.Errorf("%w%s", ErrNotFound, detail)
	case code >= 500:
		return httputil.Retryable(fmt.Errorf("%w: status %d%s", ErrNetwork, code, detail))
	default:
		return fmt.Errorf("%w: status %d%s", ErrNetwork, code, detail)
	}
}

// describe pulls a human-readable reason out of an error body. Registries
// answer with {"description": ...} or {"error": ..., "description": ...};
// anything else is quoted verbatim, truncated.
func describe(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	if gjson.ValidBytes(body) {
		for _, path := range []string{"description", "error", "message"} {
			if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
				return ": " + v.String()
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 100 {
		text = text[:100]
	}
	if text == "" {
		return ""
	}
	return ": " + text
}
