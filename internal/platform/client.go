package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"labelsheet/internal/config"
	"labelsheet/internal/logging"
	"labelsheet/internal/services"
)

const (
	defaultTimeout      = 60 * time.Second
	defaultPollInterval = 2 * time.Second
	defaultJobDeadline  = 10 * time.Minute
)

// Client talks to the labeling platform's upload API. All blocking calls
// take a context; long-running operations submit a job and poll it.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	logger       *slog.Logger
	pollInterval time.Duration
	jobDeadline  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "platform")
		}
	}
}

// WithPollInterval overrides the job polling interval.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithJobDeadline overrides the terminal deadline for job polling.
func WithJobDeadline(deadline time.Duration) Option {
	return func(c *Client) {
		if deadline > 0 {
			c.jobDeadline = deadline
		}
	}
}

// NewClient builds a Client from the platform configuration section.
func NewClient(cfg config.Platform, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "platform", "init", "api key required", nil)
	}
	baseURL := strings.TrimSpace(cfg.Endpoint)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "platform", "init", "endpoint required", nil)
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	pollInterval := defaultPollInterval
	if cfg.PollIntervalSeconds > 0 {
		pollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	}
	jobDeadline := defaultJobDeadline
	if cfg.JobDeadlineSeconds > 0 {
		jobDeadline = time.Duration(cfg.JobDeadlineSeconds) * time.Second
	}

	client := &Client{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logging.NewNop(),
		pollInterval: pollInterval,
		jobDeadline:  jobDeadline,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// do issues one JSON request and decodes the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrValidation, "platform", path, "encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return services.Wrap(services.ErrValidation, "platform", path, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return services.Wrap(services.ErrTransient, "platform", path, fmt.Sprintf("request failed after %v", latency), err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api call",
		logging.Args(
			logging.String("method", method),
			logging.String("path", path),
			logging.Int("status", resp.StatusCode),
			logging.String(logging.FieldCorrelationID, requestID),
			logging.Any(logging.FieldDuration, latency),
		)...)

	if resp.StatusCode >= 400 {
		detail := readErrorDetail(resp.Body)
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, "platform", path,
				fmt.Sprintf("status %d: %s", resp.StatusCode, detail), nil)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return services.Wrap(services.ErrTransient, "platform", path,
				fmt.Sprintf("status %d: %s", resp.StatusCode, detail), nil)
		default:
			return services.Wrap(services.ErrValidation, "platform", path,
				fmt.Sprintf("status %d: %s", resp.StatusCode, detail), nil)
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransient, "platform", path, "decode response", err)
	}
	return nil
}

func readErrorDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "no error detail"
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(data))
}
