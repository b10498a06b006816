package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is an HTTP client for the adoread API.
type Client struct {
	baseURL string
	rc      *resty.Client
}

// ClientOption configures a Client.
type ClientOption func(*resty.Client)

// WithTimeout sets a per-request timeout. Zero means no timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(rc *resty.Client) { rc.SetTimeout(d) }
}

// NewClient creates a new API client. Requests are never retried.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{baseURL: baseURL, rc: rc}
}

// BaseURL returns the server URL this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request and decodes the JSON response.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	resp, err := c.rc.R().SetContext(ctx).Get(path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return handleResponse(resp, result)
}

// Post performs a POST request with JSON body and decodes the response.
func (c *Client) Post(ctx context.Context, path string, body any, result any) error {
	req := c.rc.R().SetContext(ctx).SetHeader("Content-Type", "application/json")
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return handleResponse(resp, result)
}

// PostFile uploads r as the multipart form field "file".
func (c *Client) PostFile(ctx context.Context, path, filename string, r io.Reader, result any) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetFileReader("file", filename, r).
		Post(path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return handleResponse(resp, result)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	resp, err := c.rc.R().SetContext(ctx).Delete(path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return handleResponse(resp, nil)
}

// StatusError is returned for responses with a status code >= 400.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

func handleResponse(resp *resty.Response, result any) error {
	body := resp.Body()

	if resp.StatusCode() >= 400 {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return &StatusError{StatusCode: resp.StatusCode(), Message: errResp.Error}
		}
		return &StatusError{StatusCode: resp.StatusCode(), Message: string(body)}
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// ErrorResponse matches the server's error response format.
type ErrorResponse struct {
	Error string `json:"error"`
}
