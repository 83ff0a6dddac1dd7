package stealth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

type robotsEntry struct {
	data    *robotstxt.RobotsData
	expires time.Time
}

// RobotsChecker caches robots.txt rules per origin. A disabled checker
// allows everything without touching the network.
type RobotsChecker struct {
	mu       sync.Mutex
	entries  map[string]robotsEntry
	client   *http.Client
	cacheTTL time.Duration
	enabled  bool
}

// NewRobotsChecker creates a new robots.txt checker.
func NewRobotsChecker(client *http.Client, enabled bool) *RobotsChecker {
	return &RobotsChecker{
		entries:  make(map[string]robotsEntry),
		client:   client,
		cacheTTL: time.Hour,
		enabled:  enabled,
	}
}

// IsAllowed checks if the given URL is allowed by robots.txt.
func (r *RobotsChecker) IsAllowed(userAgent, rawURL string) (bool, error) {
	if r == nil || !r.enabled {
		return true, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false, err
	}

	data, err := r.rules(context.Background(), u.Scheme+"://"+u.Host)
	if err != nil {
		// An unreachable robots.txt does not block the API.
		return true, nil
	}
	return data.TestAgent(u.Path, userAgent), nil
}

func (r *RobotsChecker) rules(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[origin]; ok && time.Now().Before(e.expires) {
		return e.data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	// 4xx means "no rules", 5xx means "disallow all" per robotstxt semantics.
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.entries[origin] = robotsEntry{data: data, expires: time.Now().Add(r.cacheTTL)}
	return data, nil
}
