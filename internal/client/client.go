// Package client talks to a running uvb server over its HTTP protocol.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ajitpratap0/uvb/internal/api"
)

var (
	// ErrNotFound is returned when the server has no counter with the given name.
	ErrNotFound = errors.New("counter not found")

	// ErrAlreadyExists is returned when registering a name that is already live.
	ErrAlreadyExists = errors.New("counter already exists")

	// ErrNameUnavailable is returned when the name collides with another registered name.
	ErrNameUnavailable = errors.New("counter name unavailable")
)

// Client is an HTTP client for the uvb protocol.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// New creates a Client for the server at baseURL.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Register creates a counter named name.
func (c *Client) Register(ctx context.Context, name string) error {
	status, body, err := c.post(ctx, "/register/"+url.PathEscape(name))
	if err != nil {
		return err
	}
	switch status {
	case http.StatusCreated:
		return nil
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrNameUnavailable, name)
	default:
		return fmt.Errorf("uvb server returned %d: %s", status, body)
	}
}

// Increment adds one to the counter named name.
func (c *Client) Increment(ctx context.Context, name string) error {
	status, body, err := c.post(ctx, "/"+url.PathEscape(name))
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	default:
		return fmt.Errorf("uvb server returned %d: %s", status, body)
	}
}

// Counters fetches the JSON counter listing.
func (c *Client) Counters(ctx context.Context) (*api.CountersResponse, error) {
	var out api.CountersResponse
	if err := c.getJSON(ctx, "/v1/counters", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	if err := c.getJSON(ctx, "/healthz", &out); err != nil {
		return err
	}
	if out["status"] != "ok" {
		return fmt.Errorf("uvb server reported status %q", out["status"])
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, http.NoBody)
	if err != nil {
		return 0, "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("calling uvb server: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	c.logger.Debug("uvb request", "path", path, "status", resp.StatusCode)
	return resp.StatusCode, strings.TrimSpace(string(body)), nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling uvb server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("uvb server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
