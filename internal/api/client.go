package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Client is an HTTP client for the large-file scan service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a client whose requests are relative to baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Detail     string
	Body       string
}

func (e *APIError) Error() string {
	reason := e.Detail
	if reason == "" {
		reason = http.StatusText(e.StatusCode)
	}
	if reason == "" {
		reason = fmt.Sprintf("status %d", e.StatusCode)
	}
	return "Error: " + reason
}

func (c *Client) doRequest(ctx context.Context, method, path string) (*http.Response, error) {
	reqURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Str("request_id", requestID).Str("method", method).Str("path", path).Err(err).Msg("request failed")
		return nil, fmt.Errorf("execute request: %w", err)
	}
	c.log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, newAPIError(resp)
	}
	return resp, nil
}

func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}

	// FastAPI style {"detail": "..."}; echo style {"message": "..."}.
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		var detail string
		if json.Unmarshal(payload.Detail, &detail) == nil && detail != "" {
			apiErr.Detail = detail
		} else if payload.Message != "" {
			apiErr.Detail = payload.Message
		}
	}
	return apiErr
}

func decode[T any](resp *http.Response) (T, error) {
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// StartScan asks the server to scan req.Path. The acknowledgement body is
// returned raw; the client does not interpret it.
func (c *Client) StartScan(ctx context.Context, req ScanRequest) (json.RawMessage, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/scan?"+req.Query())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	event := c.log.Info().Str("path", req.Path)
	if json.Valid(body) {
		event = event.RawJSON("ack", body)
	} else {
		event = event.Str("ack", string(body))
	}
	event.Msg("scan started")
	return json.RawMessage(body), nil
}

// Status fetches and decodes the current scan status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/status")
	if err != nil {
		return Status{}, err
	}
	wire, err := decode[WireStatus](resp)
	if err != nil {
		return Status{}, err
	}
	return DecodeStatus(wire), nil
}

// Files fetches the complete result set of the last scan.
func (c *Client) Files(ctx context.Context) ([]FileRecord, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/files")
	if err != nil {
		return nil, err
	}
	files, err := decode[[]FileRecord](resp)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []FileRecord{}
	}
	return files, nil
}

// Delete removes one file on the server.
func (c *Client) Delete(ctx context.Context, id FileID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/delete/"+url.PathEscape(id.String()))
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// DeleteAllSafe removes every safe file and returns the server's summary.
func (c *Client) DeleteAllSafe(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/delete-all-safe")
	if err != nil {
		return "", err
	}
	out, err := decode[bulkDeleteResponse](resp)
	if err != nil {
		return "", err
	}
	return out.Message, nil
}

// Open asks the server to reveal the file in its file manager.
func (c *Client) Open(ctx context.Context, id FileID) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/open/"+url.PathEscape(id.String()))
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
