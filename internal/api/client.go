// Package api talks to the application origin: the static auth config and
// the SMA control API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/smacontrol/sma/internal/model"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// Client implements model.Backend over HTTP.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the origin of baseURL. A nil httpClient
// means http.DefaultClient.
func NewClient(baseURL *url.URL, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	origin := &url.URL{Scheme: baseURL.Scheme, Host: baseURL.Host}
	return &Client{
		baseURL:    origin,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "api")),
	}
}

// FetchAuthConfig downloads and validates the identity provider config.
func (c *Client) FetchAuthConfig(ctx context.Context) (model.AuthConfig, error) {
	var cfg model.AuthConfig

	body, err := c.get(ctx, model.AuthConfigPath, "")
	if err != nil {
		return cfg, fmt.Errorf("api: fetch auth config: %w", err)
	}
	if err := json.Unmarshal(body, &cfg); err != nil {
		return cfg, fmt.Errorf("api: decode auth config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("api: %w", err)
	}
	return cfg, nil
}

// Register calls the control API's register endpoint with the bearer token
// and returns the raw response text.
func (c *Client) Register(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("api: register: empty bearer token")
	}
	body, err := c.get(ctx, model.RegisterPath, token)
	if err != nil {
		return "", fmt.Errorf("api: register: %w", err)
	}
	return string(body), nil
}

func (c *Client) get(ctx context.Context, path, bearer string) ([]byte, error) {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("unexpected status",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}
