// Package brainprofile implements the Brain Profile service API client.
// The profile service owns the assessed grade level for each learner and
// subject; this client is the only component that talks to it. Callers are
// expected to fall back to a default level when the service is unreachable,
// so every transport failure is mapped to a degradable error.
package brainprofile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/proposal"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the brain profile client.
type ClientConfig struct {
	// BaseURL is the profile service base URL
	BaseURL string

	// APIKey is the service-to-service API key
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// CircuitBreakerConfig for fault tolerance
	CircuitBreakerConfig CircuitBreakerConfig

	// RetryConfig for retry behavior
	RetryConfig RetryConfig

	// Logger for structured logging
	Logger *logger.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:              strings.TrimRight(baseURL, "/"),
		Timeout:              5 * time.Second,
		CircuitBreakerConfig: DefaultCircuitBreakerConfig(),
		RetryConfig:          DefaultRetryConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the brain profile service client.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *logger.Logger
	circuitBreaker *CircuitBreaker
}

// NewClient creates a new brain profile client.
func NewClient(config ClientConfig) *Client {
	log := config.Logger
	if log == nil {
		log = logger.Default()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:         log.With(logger.Component("brainprofile")),
		circuitBreaker: NewCircuitBreaker(config.CircuitBreakerConfig),
	}
}

// CurrentGradeLevel fetches the assessed grade level for one learner and
// subject. Transport failures, timeouts, and an open circuit all surface as
// upstream-unavailable errors so that callers can apply their fallback.
func (c *Client) CurrentGradeLevel(ctx context.Context, tenantID, learnerID, subject string) (proposal.GradeLevel, error) {
	path := fmt.Sprintf("/api/v1/tenants/%s/learners/%s/profile?subject=%s",
		url.PathEscape(tenantID), url.PathEscape(learnerID), url.QueryEscape(subject))

	var dto ProfileDTO
	if err := c.doRequest(ctx, http.MethodGet, path, &dto); err != nil {
		return 0, err
	}

	level := proposal.GradeLevel(dto.GradeLevel)
	if !level.IsValid() {
		c.logger.Warn("profile service returned out-of-range grade level",
			logger.LearnerID(learnerID),
			logger.Subject(subject),
			logger.Int("grade_level", dto.GradeLevel))
		return 0, fmt.Errorf("grade level %d out of range: %w", dto.GradeLevel, shared.ErrBrainProfileUnavailable)
	}

	return level, nil
}

// IsHealthy reports whether the circuit currently admits requests.
func (c *Client) IsHealthy() bool {
	return c.circuitBreaker.State() != CircuitOpen
}

// Reset closes the circuit breaker. Intended for tests and admin tooling.
func (c *Client) Reset() {
	c.circuitBreaker.Reset()
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP PLUMBING
// ══════════════════════════════════════════════════════════════════════════════

func (c *Client) doRequest(ctx context.Context, method, path string, result interface{}) error {
	if err := c.circuitBreaker.Allow(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrBrainProfileUnavailable, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.config.RetryConfig.CalculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return c.mapContextErr(ctx.Err())
			case <-time.After(backoff):
			}
		}

		err := c.doSingleRequest(ctx, method, path, result)
		if err == nil {
			c.circuitBreaker.RecordSuccess()
			return nil
		}

		lastErr = err

		if !c.isRetryable(err) {
			c.circuitBreaker.RecordFailure()
			return c.mapErr(err)
		}
	}

	c.circuitBreaker.RecordFailure()
	return c.mapErr(fmt.Errorf("request failed after %d retries: %w", c.config.RetryConfig.MaxRetries, lastErr))
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIErrorDTO{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(respBody, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// isRetryable checks if an error is worth another attempt.
func (c *Client) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIErrorDTO
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}

	// Network errors are generally retryable; a cancelled context is not.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	errStr := err.Error()
	return containsAny(errStr, []string{"timeout", "connection refused", "temporary", "reset", "EOF"})
}

// mapErr translates transport failures into the shared error taxonomy.
// A 404 means the learner has no assessed profile yet, which degrades the
// same way as an outage: the caller falls back to the default grade level.
func (c *Client) mapErr(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *APIErrorDTO
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusNotFound:
			return fmt.Errorf("profile not assessed: %w", shared.ErrBrainProfileUnavailable)
		case apiErr.Status == http.StatusGatewayTimeout:
			return fmt.Errorf("%v: %w", apiErr, shared.ErrBrainProfileTimeout)
		default:
			return fmt.Errorf("%v: %w", apiErr, shared.ErrBrainProfileUnavailable)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || containsAny(err.Error(), []string{"timeout", "deadline exceeded"}) {
		return fmt.Errorf("%v: %w", err, shared.ErrBrainProfileTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	return fmt.Errorf("%v: %w", err, shared.ErrBrainProfileUnavailable)
}

func (c *Client) mapContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, shared.ErrBrainProfileTimeout)
	}
	return err
}

// containsAny checks if s contains any of the substrings.
func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
