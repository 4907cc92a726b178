package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter keeps one token bucket per URL host, so the public proxies shared by every
// source are not hammered when a cycle fans out.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	waits    int
}

// NewHostLimiter creates a limiter allowing perSecond requests per host with the given burst.
// A non-positive perSecond disables limiting.
func NewHostLimiter(perSecond float64, burst int) *HostLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Wait blocks until a token for rawURL's host is available or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if h == nil {
		return nil
	}
	host := hostOf(rawURL)

	h.mu.Lock()
	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(h.limit, h.burst)
		h.limiters[host] = l
	}
	h.waits++
	h.mu.Unlock()

	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", host, err)
	}
	return nil
}

// GetStats returns current limiter statistics.
func (h *HostLimiter) GetStats() map[string]interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()

	hosts := make([]string, 0, len(h.limiters))
	for host := range h.limiters {
		hosts = append(hosts, host)
	}
	return map[string]interface{}{
		"hosts": hosts,
		"waits": h.waits,
		"limit": float64(h.limit),
		"burst": h.burst,
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Host)
}
