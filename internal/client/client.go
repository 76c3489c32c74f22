// Package client talks to the photo triage API from the local commands.
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
	"strings"
	"time"

	"github.com/kozaktomas/photo-triage/internal/api"
)

const (
	registerTimeout = 120 * time.Second
	sortTimeout     = 300 * time.Second
	healthTimeout   = 10 * time.Second
)

// APIError is returned when the server answers with a non-ok status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Message)
}

// Client calls the triage API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL (e.g. http://127.0.0.1:8080).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{},
	}
}

// Health returns the registered identity names.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	return doJSON[api.HealthResponse](ctx, c, http.MethodGet, api.PathHealth, nil, healthTimeout)
}

// Identity returns one registered identity. A missing name is an *APIError
// with status 404.
func (c *Client) Identity(ctx context.Context, name string) (*api.IdentityResponse, error) {
	path := strings.Replace(api.PathIdentity, "{name}", url.PathEscape(name), 1)
	return doJSON[api.IdentityResponse](ctx, c, http.MethodGet, path, nil, healthTimeout)
}

// Register uploads reference embeddings.
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	return doJSON[api.RegisterResponse](ctx, c, http.MethodPost, api.PathRegister, req, registerTimeout)
}

// Sort classifies inbox embeddings.
func (c *Client) Sort(ctx context.Context, req api.SortRequest) (*api.SortResponse, error) {
	return doJSON[api.SortResponse](ctx, c, http.MethodPost, api.PathSort, req, sortTimeout)
}

// doJSON performs a request with an optional JSON body and decodes a JSON
// response. Error payloads become *APIError.
func doJSON[T any](ctx context.Context, c *Client, method, path string, requestBody any, timeout time.Duration) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if requestBody != nil {
		jsonBody, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, body)
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}
	return &result, nil
}

func newAPIError(status int, body []byte) *APIError {
	var payload api.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return &APIError{StatusCode: status, Message: payload.Message}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 500 {
		msg = msg[:500] + "..."
	}
	return &APIError{StatusCode: status, Message: msg}
}

// IsNoPersons reports whether err is the server refusing to sort against an
// empty reference store.
func IsNoPersons(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Message == "no persons registered"
}
