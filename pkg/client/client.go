// Package client provides a Go client for the jobforge daemon API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	v1 "github.com/mgriffes/jobforge/api/v1"
	srvErrors "github.com/mgriffes/jobforge/pkg/errors"
)

// StatusError is returned for non-2xx API responses that carry an
// error body.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Code, e.Message)
}

// IsStatusError reports whether err is an API status error with the
// given code.
func IsStatusError(err error, code int) bool {
	var e *StatusError
	return errors.As(err, &e) && e.Code == code
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	maxElapsed time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetryTimeout bounds how long transient failures (connection
// errors, 5xx responses) are retried before giving up.
func WithRetryTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.maxElapsed = d
	}
}

// New creates a client for the daemon at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxElapsed: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitRun posts a YAML pipeline document and returns the accepted
// run.
func (c *Client) SubmitRun(ctx context.Context, pipelineYAML []byte) (*v1.SubmitRunResponse, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/v1/runs", "application/yaml", pipelineYAML)
	if err != nil {
		return nil, err
	}

	var resp v1.SubmitRunResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode submit response: %w", err)
	}
	return &resp, nil
}

// GetRun fetches one run with its task runs.
func (c *Client) GetRun(ctx context.Context, id string) (*v1.Run, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v1/runs/"+url.PathEscape(id), "", nil)
	if err != nil {
		if IsStatusError(err, http.StatusNotFound) {
			return nil, srvErrors.NewRunNotFoundError(id)
		}
		return nil, err
	}

	var run v1.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}

// ListRunsParams filters and paginates the run listing.
type ListRunsParams struct {
	States    []string
	Pipelines []string
	Page      int
	PageSize  int
}

// ListRuns fetches the run history, newest first.
func (c *Client) ListRuns(ctx context.Context, params ListRunsParams) (*v1.RunList, error) {
	query := url.Values{}
	for _, s := range params.States {
		query.Add("state", s)
	}
	for _, p := range params.Pipelines {
		query.Add("pipeline", p)
	}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(params.PageSize))
	}

	path := "/api/v1/runs"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	data, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}

	var list v1.RunList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode run list: %w", err)
	}
	return &list, nil
}

// SchedulerStats fetches the live scheduler counters.
func (c *Client) SchedulerStats(ctx context.Context) (*v1.SchedulerStats, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v1/scheduler/stats", "", nil)
	if err != nil {
		return nil, err
	}

	var stats v1.SchedulerStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decode scheduler stats: %w", err)
	}
	return &stats, nil
}

// Health checks daemon liveness.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/v1/health", "", nil)
	return err
}

// do performs one API request. Connection failures and 5xx responses
// are retried with exponential backoff until the retry timeout; 4xx
// responses fail immediately with a StatusError.
func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) ([]byte, error) {
	log := zap.S().Named("client")
	requestURL := c.baseURL + path

	operation := func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= http.StatusBadRequest {
			statusErr := &StatusError{
				Code:    resp.StatusCode,
				Message: errorMessage(resp, data),
			}
			if resp.StatusCode >= http.StatusInternalServerError {
				return nil, statusErr
			}
			return nil, backoff.Permanent(statusErr)
		}

		return data, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(c.maxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Debugw("request failed, retrying",
				"method", method, "url", requestURL, "error", err, "next_attempt_in", next)
		}))
}

// errorMessage extracts the API error body, falling back to the HTTP
// status text.
func errorMessage(resp *http.Response, data []byte) string {
	var apiErr v1.Error
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
		return apiErr.Error
	}
	return resp.Status
}
