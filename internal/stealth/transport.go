package stealth

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// DefaultUserAgent identifies the miner to the upstream API.
const DefaultUserAgent = "listing-miner/1.0 (+https://github.com/lukman83/listing-miner)"

// StealthTransport is an http.RoundTripper that paces outgoing requests:
// robots check, rate limiter, jitter, proxy, send.
type StealthTransport struct {
	Base        http.RoundTripper
	UserAgent   string
	Robots      *RobotsChecker
	Proxy       *ProxyRotator
	Delay       *Jitter
	RateLimiter *rate.Limiter
}

func (t *StealthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ua := t.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", ua)

	if t.Robots != nil {
		allowed, err := t.Robots.IsAllowed(ua, req.URL.String())
		if err == nil && !allowed {
			return nil, fmt.Errorf("blocked by robots.txt: %s", req.URL.Path)
		}
	}

	if t.RateLimiter != nil {
		if err := t.RateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if t.Delay != nil {
		if err := t.Delay.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("delay: %w", err)
		}
	}

	transport := t.Base
	if t.Proxy != nil {
		transport = t.Proxy.Next().Transport()
	}
	if transport == nil {
		transport = http.DefaultTransport
	}

	return transport.RoundTrip(req)
}
