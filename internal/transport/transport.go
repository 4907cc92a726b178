// Package transport retrieves remote payloads through a direct, primary proxy, secondary proxy
// fallback chain.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deusflow/sitrep/internal/logger"
	"github.com/deusflow/sitrep/internal/ratelimit"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "sitrep/1.0 (+https://github.com/deusflow/sitrep)"

	maxBodyBytes = 10 << 20
)

// Result is the payload of the first strategy that succeeded.
type Result struct {
	Body       []byte
	Strategy   string
	StatusCode int
	// NoContent is set for an HTTP 204, or a blank body when AcceptEmpty was requested.
	NoContent bool
}

// Options configure a Client. Zero values select defaults.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	UserAgent  string
	Limiter    *ratelimit.HostLimiter
	Logger     logger.Logger
}

// Client walks its strategies in order for every fetch.
type Client struct {
	http       *http.Client
	strategies []Strategy
	userAgent  string
	limiter    *ratelimit.HostLimiter
	log        logger.Logger
}

// New creates a client over the given strategy chain.
func New(strategies []Strategy, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		http:       hc,
		strategies: append([]Strategy(nil), strategies...),
		userAgent:  ua,
		limiter:    opts.Limiter,
		log:        log,
	}
}

// Strategies returns the configured chain.
func (c *Client) Strategies() []Strategy {
	return append([]Strategy(nil), c.strategies...)
}

type fetchConfig struct {
	acceptEmpty bool
}

// FetchOption adjusts a single fetch.
type FetchOption func(*fetchConfig)

// AcceptEmpty reports a blank 2xx body as NoContent instead of failing over.
func AcceptEmpty() FetchOption {
	return func(fc *fetchConfig) { fc.acceptEmpty = true }
}

// Fetch returns the first successful payload for target. It never retries a strategy; when
// all strategies fail the error is a *FetchError with one Attempt per strategy tried.
func (c *Client) Fetch(ctx context.Context, target string, opts ...FetchOption) (*Result, error) {
	var fc fetchConfig
	for _, o := range opts {
		o(&fc)
	}

	ferr := &FetchError{Target: target}
	if len(c.strategies) == 0 {
		return nil, ferr
	}

	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			ferr.Attempts = append(ferr.Attempts, Attempt{Strategy: s.Name, Err: err})
			break
		}

		res, err := c.try(ctx, s, target, fc)
		if err == nil {
			res.Strategy = s.Name
			return res, nil
		}
		c.log.Debug("Transport strategy failed",
			logger.String("strategy", s.Name),
			logger.String("target", target),
			logger.Err(err),
		)
		ferr.Attempts = append(ferr.Attempts, Attempt{Strategy: s.Name, Err: err})
	}
	return nil, ferr
}

func (c *Client) try(ctx context.Context, s Strategy, target string, fc fetchConfig) (*Result, error) {
	reqURL := s.RequestURL(target)
	if err := c.limiter.Wait(ctx, reqURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return &Result{StatusCode: resp.StatusCode, NoContent: true}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, URL: reqURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if s.Mode == ModeEnvelope {
		return unwrapEnvelope(body, target, fc)
	}
	return payload(body, resp.StatusCode, fc)
}

type envelope struct {
	Contents *string `json:"contents"`
	Status   struct {
		HTTPCode int `json:"http_code"`
	} `json:"status"`
}

func unwrapEnvelope(body []byte, target string, fc fetchConfig) (*Result, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	code := env.Status.HTTPCode
	if code == 0 {
		code = http.StatusOK
	}
	if code == http.StatusNoContent {
		return &Result{StatusCode: code, NoContent: true}, nil
	}
	if code >= 400 {
		return nil, &StatusError{Code: code, URL: target}
	}

	var contents []byte
	if env.Contents != nil {
		contents = []byte(*env.Contents)
	}
	return payload(contents, code, fc)
}

func payload(body []byte, code int, fc fetchConfig) (*Result, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		if fc.acceptEmpty {
			return &Result{StatusCode: code, NoContent: true}, nil
		}
		return nil, ErrEmptyPayload
	}
	return &Result{Body: body, StatusCode: code}, nil
}
