// Package client talks to the optimization HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/gridpick/internal/adapters/http/api"
	"github.com/okian/gridpick/internal/domain/model"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultPollInterval = 100 * time.Millisecond
)

// Client wraps http.Client with the API routes.
type Client struct {
	baseURL      string
	http         *http.Client
	pollInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithPollInterval sets how often Wait polls a job.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: defaultTimeout},
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks that the service answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Submit posts a weekend for optimization.
func (c *Client) Submit(ctx context.Context, requestID string, w model.Weekend) (api.SubmitResponse, error) { //nolint:gocritic // hugeParam: marshalled once
	var out api.SubmitResponse
	body, err := json.Marshal(api.OptimizationRequest{RequestID: requestID, Weekend: w})
	if err != nil {
		return out, fmt.Errorf("failed to marshal request body: %w", err)
	}
	err = c.call(ctx, http.MethodPost, "/optimizations", body, &out)
	return out, err
}

// Job fetches the current state of a job.
func (c *Client) Job(ctx context.Context, id string) (api.JobResponse, error) {
	var out api.JobResponse
	err := c.call(ctx, http.MethodGet, "/optimizations/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Board fetches up to limit ranked teams. A limit below one asks for the
// server's maximum.
func (c *Client) Board(ctx context.Context, id string, limit int) ([]api.Entry, error) {
	path := "/optimizations/" + url.PathEscape(id) + "/board"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []api.Entry
	err := c.call(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Stats fetches the service statistics.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.call(ctx, http.MethodGet, "/stats", nil, &out)
	return out, err
}

// Wait polls a job until it finishes or ctx ends. A failed job is returned
// together with ErrJobFailed.
func (c *Client) Wait(ctx context.Context, id string) (api.JobResponse, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		job, err := c.Job(ctx, id)
		if err != nil {
			return job, err
		}
		if job.Status.Finished() {
			if job.Error != "" {
				return job, fmt.Errorf("%w: %s", ErrJobFailed, job.Error)
			}
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, fmt.Errorf("wait for %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// call performs the request and decodes a 2xx body into out.
func (c *Client) call(ctx context.Context, method, path string, body []byte, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(status int, data []byte) error {
	se := &StatusError{Status: status, Message: http.StatusText(status)}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil {
		se.Code = body.Code
		if body.Message != "" {
			se.Message = body.Message
		}
	}

	var kind error
	switch status {
	case http.StatusTooManyRequests:
		kind = ErrBackpressure
	case http.StatusNotFound:
		kind = ErrNotFound
	case http.StatusConflict:
		kind = ErrNotReady
	case http.StatusUnprocessableEntity:
		kind = ErrJobFailed
	default:
		return se
	}
	return fmt.Errorf("%w: %w", kind, se)
}
