// Package fatigueapi is the HTTP client for the remote biomathematical
// fatigue analysis service. The service's model internals are opaque; this
// package only speaks its JSON wire format.
package fatigueapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// DoFunc performs an HTTP request; injection point for the cached client.
type DoFunc func(context.Context, *http.Request) (*http.Response, error)

// Client talks to the analysis service.
type Client struct {
	logger  *slog.Logger
	httpDo  DoFunc
	baseURL string
	token   string
}

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	httpDo     DoFunc
	token      string
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithHTTPDo injects a request function, e.g. a caching wrapper. Takes
// precedence over WithHTTPClient.
func WithHTTPDo(do DoFunc) Option {
	return func(o *options) { o.httpDo = do }
}

// NewClient creates a Client for the service at baseURL.
func NewClient(logger *slog.Logger, baseURL string, opts ...Option) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	httpDo := o.httpDo
	if httpDo == nil {
		hc := o.httpClient
		if hc == nil {
			hc = &http.Client{
				Timeout: 60 * time.Second,
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 10,
					IdleConnTimeout:     90 * time.Second,
				},
			}
		}
		httpDo = func(_ context.Context, req *http.Request) (*http.Response, error) {
			return hc.Do(req)
		}
	}
	return &Client{
		logger:  logger,
		httpDo:  httpDo,
		baseURL: baseURL,
		token:   o.token,
	}
}

// Analyze submits a roster for analysis. This is a single-shot call: an
// upstream failure is returned once, with no retry and no partial result.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("roster", req.RosterFilename)
	if err != nil {
		return nil, fmt.Errorf("creating roster form file: %w", err)
	}
	if _, err := fw.Write(req.Roster); err != nil {
		return nil, fmt.Errorf("writing roster: %w", err)
	}
	fields := map[string]string{
		"pilot_id":      req.PilotID,
		"home_base":     req.HomeBase,
		"config_preset": req.ConfigPreset,
		"crew_set":      req.CrewSet,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("writing field %s: %w", name, err)
		}
	}
	if len(req.CrewOverrides) > 0 {
		overrides, err := json.Marshal(req.CrewOverrides)
		if err != nil {
			return nil, fmt.Errorf("marshaling crew overrides: %w", err)
		}
		if err := mw.WriteField("crew_overrides", string(overrides)); err != nil {
			return nil, fmt.Errorf("writing crew overrides: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze", &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(httpReq)

	resp, err := c.httpDo(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer c.closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, "analysis")
	}

	var result AnalysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding analysis response: %w", err)
	}
	c.logger.Debug("analysis complete",
		"analysis_id", result.AnalysisID, "pilot", result.PilotID, "duties", len(result.Duties))
	return &result, nil
}

// DutyTimeline fetches the high-resolution drill-down for one duty. The read
// is idempotent, so transient failures are retried with backoff and jitter.
func (c *Client) DutyTimeline(ctx context.Context, analysisID, dutyID string) (*DutyTimelineResponse, error) {
	apiURL := fmt.Sprintf("%s/api/duty/%s/%s",
		c.baseURL, url.PathEscape(analysisID), url.PathEscape(dutyID))

	var result DutyTimelineResponse
	err := c.retriedJSON(ctx, http.MethodGet, apiURL, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("fetching duty timeline %s/%s: %w", analysisID, dutyID, err)
	}
	c.logger.Debug("fetched duty timeline", "duty", dutyID, "samples", len(result.Samples))
	return &result, nil
}

// AirportBatch resolves timezone and coordinates for a batch of IATA codes.
func (c *Client) AirportBatch(ctx context.Context, codes []string) ([]AirportPayload, error) {
	payload, err := json.Marshal(map[string][]string{"codes": codes})
	if err != nil {
		return nil, fmt.Errorf("marshaling airport codes: %w", err)
	}

	var result []AirportPayload
	err = c.retriedJSON(ctx, http.MethodPost, c.baseURL+"/api/airports/batch", payload, &result)
	if err != nil {
		return nil, fmt.Errorf("airport batch lookup: %w", err)
	}
	c.logger.Debug("resolved airports", "requested", len(codes), "resolved", len(result))
	return result, nil
}

// retriedJSON performs an idempotent request with exponential backoff and
// jitter, decoding a JSON response into out. Client errors other than 429
// are not retried.
func (c *Client) retriedJSON(ctx context.Context, method, apiURL string, body []byte, out any) error {
	var lastErr error
	err := retry.Do(
		func() error {
			var reader io.Reader
			if body != nil {
				reader = bytes.NewReader(body)
			}
			req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("creating request: %w", err))
			}
			if body != nil {
				req.Header.Set("Content-Type", "application/json")
			}
			c.authorize(req)

			resp, err := c.httpDo(ctx, req)
			if err != nil {
				lastErr = err
				return err
			}
			defer c.closeBody(resp)

			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				lastErr = c.statusError(resp, method)
				return retry.Unrecoverable(lastErr)
			}
			if resp.StatusCode != http.StatusOK {
				lastErr = c.statusError(resp, method)
				return lastErr
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				lastErr = fmt.Errorf("decoding response: %w", err)
				return retry.Unrecoverable(lastErr)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(100*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying request", "attempt", n+1, "url", apiURL, "error", err)
		}),
	)
	if err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) statusError(resp *http.Response, operation string) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		c.logger.Debug("failed to read error response body", "error", err)
	}
	return fmt.Errorf("%s returned HTTP %d: %s", operation, resp.StatusCode, bytes.TrimSpace(body))
}

func (c *Client) closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		c.logger.Debug("failed to close response body", "error", err)
	}
}
