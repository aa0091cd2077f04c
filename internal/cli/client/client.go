package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CodeNetworkError is the APIError code for requests that got no response
const CodeNetworkError = "NETWORK_ERROR"

// CodeInvalidResponse marks a successful response the client cannot read
const CodeInvalidResponse = "INVALID_RESPONSE"

// Credentials supplies the bearer token and recovers it after a 401.
// session.Manager implements it.
type Credentials interface {
	AccessToken() string
	Refresh(ctx context.Context) (string, error)
}

// APIError is the uniform shape of every failed API call.
// Status is 0 when no response was received.
type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`

	err error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	return e.err
}

// IsStatus reports whether err is an APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client represents an HTTP client for the HealthPal API.
// Authenticated requests carry the access token from Credentials; a 401 is
// recovered once by refreshing the token and retrying the request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// New creates a new API client. creds may be nil for unauthenticated use.
func New(baseURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		creds:  creds,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get sends a GET request and decodes the JSON response into out
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put sends body as JSON and decodes the response into out
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Patch sends body as JSON and decodes the response into out
func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

// Delete sends a DELETE request and decodes the response into out
func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	payload, err := encode(body)
	if err != nil {
		return err
	}

	token := ""
	if c.creds != nil {
		token = c.creds.AccessToken()
	}

	resp, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.creds != nil {
		drain(resp)

		token, err = c.retryToken(ctx, token)
		if err != nil {
			return err
		}

		c.logger.Debug().Str("method", method).Str("path", path).Msg("Retrying request with refreshed token")

		// Only one retry: a second 401 is returned to the caller as is
		resp, err = c.send(ctx, method, path, payload, token)
		if err != nil {
			return err
		}
	}

	return c.handle(resp, out)
}

// retryToken returns the token to retry a 401 with. If another request
// already refreshed the session since this one was sent, the current token
// is reused instead of refreshing again.
func (c *Client) retryToken(ctx context.Context, sent string) (string, error) {
	if current := c.creds.AccessToken(); current != "" && current != sent {
		return current, nil
	}
	return c.creds.Refresh(ctx)
}

// send performs one HTTP round trip. Transport failures are returned as a
// NETWORK_ERROR APIError.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("Request failed")
		return nil, &APIError{
			Message: "Network error. Please check your connection.",
			Status:  0,
			Code:    CodeNetworkError,
			err:     err,
		}
	}
	return resp, nil
}

// errorBody covers the error shapes returned by the backend
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
	Code    string `json:"code"`
}

func (c *Client) handle(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{
			Message: "failed to read response",
			Status:  resp.StatusCode,
			err:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return normalize(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{
			Message: "failed to decode response",
			Status:  resp.StatusCode,
			Code:    CodeInvalidResponse,
			err:     err,
		}
	}
	return nil
}

func normalize(status int, data []byte) *APIError {
	apiErr := &APIError{Status: status}

	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Code = body.Code
		switch {
		case body.Message != "":
			apiErr.Message = body.Message
		case body.Error != "":
			apiErr.Message = body.Error
		case body.Detail != "":
			apiErr.Message = body.Detail
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	if apiErr.Message == "" {
		apiErr.Message = "An unexpected error occurred"
	}
	return apiErr
}

func encode(body interface{}) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return data, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
