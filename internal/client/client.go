// Package client implements the HTTP client for the remote scraping
// service's batch job API: submit a batch, fetch job status snapshots, and
// resubmit item subsets under the identical submit contract.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/anxhirr/product-scraper/internal/job"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits to prevent resource exhaustion under frequent polling
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// Sentinel errors classifying a failed call. Use errors.Is to distinguish
// an unreachable or refusing service from a malformed payload.
var (
	// ErrTransport marks a network or HTTP-level failure reaching the
	// job service. Non-fatal for a polling cycle.
	ErrTransport = errors.New("job service unreachable")

	// ErrDecode marks a malformed or schema-invalid status payload.
	ErrDecode = errors.New("malformed job service response")
)

// statusSchema validates the shape of a status response before decoding.
// An entry in results is either null (the sole pending signal) or a
// resolved object.
const statusSchema = `{
	"type": "object",
	"required": ["status", "results"],
	"properties": {
		"status": {"type": "string", "enum": ["running", "completed", "failed"]},
		"progress": {"type": "integer", "minimum": 0},
		"total": {"type": "integer", "minimum": 0},
		"error": {"type": ["string", "null"]},
		"results": {
			"type": "array",
			"items": {
				"type": ["object", "null"],
				"required": ["status"],
				"properties": {
					"status": {"type": "string", "enum": ["success", "error"]},
					"product": {"type": ["object", "null"]},
					"message": {"type": ["string", "null"]}
				}
			}
		},
		"original_items": {"type": ["array", "null"]}
	}
}`

// Config carries the connection settings for a [Client].
type Config struct {
	// BaseURL is the root of the job service API, without trailing slash.
	BaseURL string

	// Token is an optional bearer token sent with every request.
	Token string

	// Timeout is the per-request timeout. Zero disables it.
	Timeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client talks to the scraping service's batch job API.
//
// The client owns no job state; it converts wire payloads into [job]
// domain types and classifies failures as [ErrTransport] or [ErrDecode].
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	timeout    time.Duration
	schema     *jsonschema.Schema
	logger     *slog.Logger
}

// New creates a [Client] for the job service at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("client: base URL is required")
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("status.json", strings.NewReader(statusSchema)); err != nil {
		return nil, fmt.Errorf("client: add status schema: %w", err)
	}
	schema, err := compiler.Compile("status.json")
	if err != nil {
		return nil, fmt.Errorf("client: compile status schema: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{
			// per-request timeouts via context, not a global client timeout
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: cfg.Timeout,
		schema:  schema,
		logger:  logger,
	}, nil
}

// submitRequest is the wire form of a batch submission. The same contract
// serves fresh submissions and retries of item subsets.
type submitRequest struct {
	Items       []job.Item `json:"items"`
	Concurrency int        `json:"concurrency,omitempty"`
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

// Submit sends items to the service as one batch job and returns the
// opaque job identifier. concurrency is a hint for the service's worker
// pool; zero omits it.
func (c *Client) Submit(ctx context.Context, items []job.Item, concurrency int) (string, error) {
	body, err := json.Marshal(submitRequest{Items: items, Concurrency: concurrency})
	if err != nil {
		return "", fmt.Errorf("encode submit request: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/batch-search", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var resp submitResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: decode submit response: %v", ErrDecode, err)
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("%w: submit response missing job_id", ErrDecode)
	}
	return resp.JobID, nil
}

// Status fetches one point-in-time snapshot of the job.
//
// The payload is validated against the status schema before decoding, so a
// structurally broken response surfaces as a single [ErrDecode] rather
// than a partially decoded snapshot.
func (c *Client) Status(ctx context.Context, jobID string) (*job.Snapshot, error) {
	raw, err := c.do(ctx, http.MethodGet, c.baseURL+"/api/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}

	var shape any
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := c.schema.Validate(shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var snap job.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &snap, nil
}

// do performs one request and returns the response body, limited to 1MB.
// Failures before a 2xx body is read are classified as [ErrTransport].
func (c *Client) do(ctx context.Context, method, url string, body io.Reader) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrTransport, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("job service returned non-2xx",
			"method", method,
			"url", url,
			"status_code", resp.StatusCode,
		)
		return nil, fmt.Errorf("%w: %s %s returned %d", ErrTransport, method, url, resp.StatusCode)
	}
	return raw, nil
}

// Close closes idle connections in the client's pool.
//
// Safe to call multiple times; the client remains usable afterwards.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
