// Package telegram forwards alert events to a Telegram chat.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deusflow/sitrep/internal/logger"
	"github.com/deusflow/sitrep/internal/retry"
)

// DefaultBaseURL is the Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// APIError is a non-200 answer from the Bot API.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("telegram API error: status %d: %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("telegram API error: status %d", e.StatusCode)
}

// Client sends messages to a single chat.
type Client struct {
	baseURL string
	token   string
	chatID  string
	http    *http.Client
	retry   retry.RetryConfig
	log     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another Bot API host.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithRetry replaces the retry policy.
func WithRetry(r retry.RetryConfig) Option { return func(c *Client) { c.retry = r } }

// NewClient creates a client for token and chatID.
func NewClient(token, chatID string, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		chatID:  chatID,
		http:    &http.Client{Timeout: 30 * time.Second},
		// Exponential backoff: 2s, 4s
		retry: retry.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
		log:   log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SendMessage sends an HTML message, retrying transient failures.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	return retry.WithRetry(ctx, c.retry, func(attempt int) error {
		err := c.sendMessageOnce(ctx, text)
		if err != nil {
			c.log.Warn("Telegram send failed",
				logger.Int("attempt", attempt),
				logger.Int("max_attempts", c.retry.MaxAttempts),
				logger.Err(err),
			)
			return err
		}
		c.log.Debug("Message sent to Telegram", logger.Int("attempt", attempt))
		return nil
	})
}

func (c *Client) sendMessageOnce(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"chat_id":                  c.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("encode message: %w", err))
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var answer struct {
		Description string `json:"description"`
	}
	if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&answer) == nil {
		apiErr.Description = answer.Description
	}
	// Bad token, bad chat or bad markup will not get better on retry.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(apiErr)
	}
	return apiErr
}
