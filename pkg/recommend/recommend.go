// Package recommend is a thin client for the external recommendation
// service that consumes finalized attempt results. Calls are
// fire-and-forget from the caller's perspective: a failed hand-off is
// logged and retried by the operator, never rolled into the attempt
// transaction.
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// StudentInfo carries the student context the recommendation service
// needs for personalized output.
type StudentInfo struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Gender string `json:"gender"`
}

// CompletedAttempt is the hand-off payload for one finalized attempt.
type CompletedAttempt struct {
	AttemptID       uint           `json:"attempt_id"`
	PersonalityCode string         `json:"personality_code"`
	MetricScores    map[string]int `json:"metric_scores"`
	Student         StudentInfo    `json:"student_info"`
}

// Config holds client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client posts finalized results to the recommendation service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// New constructs a recommendation client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("recommendation service url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "recommend_client").Logger(),
	}, nil
}

// Notify delivers one finalized attempt. A non-2xx response is an error
// so the caller can count failures; the stored result is unaffected.
func (c *Client) Notify(ctx context.Context, payload CompletedAttempt) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode recommendation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/recommendations/complete", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build recommendation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("recommendation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("recommendation service returned status %d", resp.StatusCode)
	}

	c.logger.Info().Uint("attempt_id", payload.AttemptID).Msg("recommendation hand-off delivered")

	return nil
}
