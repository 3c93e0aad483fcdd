// Package httpcache caches analysis-service responses in memory so repeated
// duty drill-downs and airport lookups within a session do not refetch.
package httpcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/maypok86/otter/v2"
)

// Cache is a bounded, TTL-expiring response cache keyed by request identity
// (URL plus body for POST lookups).
type Cache struct {
	entries *otter.Cache[string, []byte]
	logger  *slog.Logger
}

// New creates a Cache whose entries expire ttl after being written.
func New(ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	entries := otter.Must(&otter.Options[string, []byte]{
		MaximumSize:      10_000,
		InitialCapacity:  256,
		ExpiryCalculator: otter.ExpiryWriting[string, []byte](ttl),
	})
	return &Cache{entries: entries, logger: logger}
}

// Size reports the estimated number of live entries.
func (c *Cache) Size() int {
	return int(c.entries.EstimatedSize())
}

func cacheKey(url string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Client wraps an HTTP client with response caching. GET requests and
// POST lookups (keyed on URL plus request body) are cached; everything else
// passes through. Only 200 responses are stored.
type Client struct {
	cache      *Cache
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a caching wrapper around httpClient. A nil httpClient
// gets a tuned default.
func NewClient(cache *Cache, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{cache: cache, httpClient: httpClient, logger: logger}
}

// Do performs the request, serving from and filling the cache where the
// method allows it.
func (c *Client) Do(_ context.Context, req *http.Request) (*http.Response, error) {
	if c.cache == nil {
		return c.httpClient.Do(req)
	}

	cacheable := req.Method == http.MethodGet || req.Method == http.MethodPost
	if !cacheable {
		return c.httpClient.Do(req)
	}

	var reqBody []byte
	if req.Body != nil {
		var err error
		reqBody, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}
	key := cacheKey(req.URL.String(), reqBody)

	if data, ok := c.cache.entries.GetIfPresent(key); ok {
		c.logger.Debug("cache hit", "url", req.URL.String(), "size", len(data))
		resp := &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(data)),
			Header:     make(http.Header),
			Request:    req,
		}
		resp.Header.Set("X-From-Cache", "true")
		return resp, nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	data, err := io.ReadAll(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil {
		c.logger.Debug("failed to close response body", "error", closeErr)
	}
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	c.cache.entries.Set(key, data)
	c.logger.Debug("cache fill", "url", req.URL.String(), "size", len(data))

	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}
