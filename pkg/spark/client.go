package spark

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	xerrors "github.com/warrenzhu25/spark-insight/pkg/errors"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 10 // requests per second against the History Server
	defaultRateBurst = 20
	apiBasePath      = "/api/v1"
)

// Client talks to a Spark History Server REST API (/api/v1).
// Completed-application responses are immutable, so the client can be
// configured with a disk cache to avoid refetching historical data.
type Client struct {
	baseURL    string
	httpClient *http.Client
	username   string
	password   string
	token      string
	limiter    *rate.Limiter
	maxRetries uint64
	cache      *Cache
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithBasicAuth enables HTTP basic authentication.
func WithBasicAuth(username, password string) ClientOption {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithToken enables bearer token authentication. Takes precedence over basic auth.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithRateLimit overrides the client-side request rate limit.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetries sets the maximum number of retry attempts for transient failures.
func WithRetries(max uint64) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
	}
}

// WithCache attaches a disk cache for GET responses.
func WithCache(cache *Cache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithInsecureTLS disables certificate verification. Only for History Servers
// behind self-signed certs in test environments.
func WithInsecureTLS() ClientOption {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402
		}
	}
}

// NewClient creates a History Server client for the given base URL
// (e.g. "http://shs.example.com:18080").
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, xerrors.New(xerrors.ErrCodeInvalidRequest, "history server URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrCodeInvalidRequest, "invalid history server URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, xerrors.NewWithContext(xerrors.ErrCodeInvalidRequest,
			"history server URL must use http or https", map[string]any{"url": baseURL})
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultRateBurst),
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// get performs a rate-limited, retried GET against the API and decodes the
// JSON response into out. Responses are served from and written to the disk
// cache when one is configured.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	fullURL := c.baseURL + apiBasePath + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	if c.cache != nil {
		if body, ok := c.cache.Get(fullURL); ok {
			clientCacheTotal.WithLabelValues("hit").Inc()
			slog.Debug("cache hit", "url", fullURL)
			return json.Unmarshal(body, out)
		}
		clientCacheTotal.WithLabelValues("miss").Inc()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return xerrors.Wrap(xerrors.ErrCodeRateLimitExceeded, "rate limiter wait canceled", err)
	}

	start := time.Now()
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		} else if c.username != "" {
			req.SetBasicAuth(c.username, c.password)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading response body: %w", err)
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(xerrors.NewWithContext(xerrors.ErrCodeNotFound,
				"resource not found", map[string]any{"url": fullURL}))
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(xerrors.New(xerrors.ErrCodeUnauthorized,
				"history server rejected credentials"))
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("history server throttled request: %s", resp.Status)
		case resp.StatusCode >= 500:
			return fmt.Errorf("history server error: %s", resp.Status)
		default:
			return backoff.Permanent(xerrors.NewWithContext(xerrors.ErrCodeInvalidRequest,
				"unexpected response status", map[string]any{"status": resp.Status, "url": fullURL}))
		}
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries)
	err := backoff.Retry(operation, backoff.WithContext(bo, ctx))

	status := "success"
	if err != nil {
		status = "error"
	}
	clientRequestsTotal.WithLabelValues(endpoint, status).Inc()
	clientRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		var structured *xerrors.StructuredError
		if errors.As(err, &structured) {
			return err
		}
		return xerrors.WrapWithContext(xerrors.ErrCodeUnavailable,
			"history server unavailable", err, map[string]any{"url": fullURL})
	}

	if c.cache != nil {
		if err := c.cache.Put(fullURL, body); err != nil {
			slog.Warn("failed to write cache entry", "url", fullURL, "error", err)
		}
	}
	return json.Unmarshal(body, out)
}

// GetApplication fetches a single application record by ID.
func (c *Client) GetApplication(ctx context.Context, appID string) (*ApplicationInfo, error) {
	var app ApplicationInfo
	if err := c.get(ctx, "application", "/applications/"+url.PathEscape(appID), nil, &app); err != nil {
		return nil, fmt.Errorf("fetching application %s: %w", appID, err)
	}
	return &app, nil
}

// ListApplicationsOptions filters the application listing.
type ListApplicationsOptions struct {
	// Status filters to "completed" or "running" applications.
	Status string
	// Limit caps the number of returned applications (0 = server default).
	Limit int
	// MinDate/MaxDate bound the application start time.
	MinDate string
	MaxDate string
}

// ListApplications lists applications known to the History Server.
func (c *Client) ListApplications(ctx context.Context, opts ListApplicationsOptions) ([]ApplicationInfo, error) {
	query := url.Values{}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.MinDate != "" {
		query.Set("minDate", opts.MinDate)
	}
	if opts.MaxDate != "" {
		query.Set("maxDate", opts.MaxDate)
	}

	var apps []ApplicationInfo
	if err := c.get(ctx, "applications", "/applications", query, &apps); err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}
	return apps, nil
}

// ListStages fetches all stage attempts of an application.
func (c *Client) ListStages(ctx context.Context, appID string) ([]StageData, error) {
	var stages []StageData
	path := "/applications/" + url.PathEscape(appID) + "/stages"
	if err := c.get(ctx, "stages", path, nil, &stages); err != nil {
		return nil, fmt.Errorf("fetching stages for %s: %w", appID, err)
	}
	return stages, nil
}

// GetStageAttempt fetches one stage attempt.
func (c *Client) GetStageAttempt(ctx context.Context, appID string, stageID, attemptID int) (*StageData, error) {
	var stage StageData
	path := fmt.Sprintf("/applications/%s/stages/%d/%d", url.PathEscape(appID), stageID, attemptID)
	if err := c.get(ctx, "stage_attempt", path, nil, &stage); err != nil {
		return nil, fmt.Errorf("fetching stage %d.%d for %s: %w", stageID, attemptID, appID, err)
	}
	return &stage, nil
}

// GetStageTaskSummary fetches the task metric quantile distributions of a
// stage attempt. Quantiles default to the server's 5-point set when empty.
func (c *Client) GetStageTaskSummary(ctx context.Context, appID string, stageID, attemptID int, quantiles string) (*TaskMetricDistributions, error) {
	query := url.Values{}
	if quantiles != "" {
		query.Set("quantiles", quantiles)
	}
	var dist TaskMetricDistributions
	path := fmt.Sprintf("/applications/%s/stages/%d/%d/taskSummary", url.PathEscape(appID), stageID, attemptID)
	if err := c.get(ctx, "task_summary", path, query, &dist); err != nil {
		return nil, fmt.Errorf("fetching task summary for stage %d.%d of %s: %w", stageID, attemptID, appID, err)
	}
	return &dist, nil
}

// ListAllExecutors fetches all executors of an application, including removed ones.
func (c *Client) ListAllExecutors(ctx context.Context, appID string) ([]ExecutorSummary, error) {
	var executors []ExecutorSummary
	path := "/applications/" + url.PathEscape(appID) + "/allexecutors"
	if err := c.get(ctx, "executors", path, nil, &executors); err != nil {
		return nil, fmt.Errorf("fetching executors for %s: %w", appID, err)
	}
	return executors, nil
}

// ListJobs fetches all jobs of an application.
func (c *Client) ListJobs(ctx context.Context, appID string) ([]JobData, error) {
	var jobs []JobData
	path := "/applications/" + url.PathEscape(appID) + "/jobs"
	if err := c.get(ctx, "jobs", path, nil, &jobs); err != nil {
		return nil, fmt.Errorf("fetching jobs for %s: %w", appID, err)
	}
	return jobs, nil
}

// GetEnvironment fetches the application environment (Spark and system properties).
func (c *Client) GetEnvironment(ctx context.Context, appID string) (*ApplicationEnvironmentInfo, error) {
	var env ApplicationEnvironmentInfo
	path := "/applications/" + url.PathEscape(appID) + "/environment"
	if err := c.get(ctx, "environment", path, nil, &env); err != nil {
		return nil, fmt.Errorf("fetching environment for %s: %w", appID, err)
	}
	return &env, nil
}
