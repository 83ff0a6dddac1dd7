// Package allegro talks to the marketplace REST API: token exchange, paged
// listing search and the category tree.
package allegro

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lukman83/listing-miner/internal/httputil"
)

const (
	// MaxPageSize is the largest page the listing endpoint serves.
	MaxPageSize     = 100
	defaultAttempts = 3
	defaultBackoff  = 5 * time.Second
)

// Options configures a Client.
type Options struct {
	Host     string
	PageSize int
	Workers  int
	Attempts int           // per call; defaults to 3
	Backoff  time.Duration // between attempts; defaults to 5s
	Logger   *slog.Logger
}

// Client is a thin REST client bound to one API host.
type Client struct {
	http      *http.Client
	host      string
	pageSize  int
	attempts  int
	backoff   time.Duration
	log       *slog.Logger
	tokens    TokenSource
	paginator *Paginator
}

// NewClient wires a Client whose listing searches are paginated across
// opts.Workers concurrent page fetches.
func NewClient(httpClient *http.Client, tokens TokenSource, opts Options) *Client {
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.PageSize <= 0 || opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Client{
		http:     httpClient,
		host:     strings.TrimRight(opts.Host, "/"),
		pageSize: opts.PageSize,
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
		log:      opts.Logger,
		tokens:   tokens,
	}
	c.paginator = NewPaginator(c, opts.Workers, opts.PageSize, opts.Logger)
	return c
}

// Tokens exposes the token source the client authenticates with.
func (c *Client) Tokens() TokenSource { return c.tokens }

// get performs one authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, rawURL, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	for k, v := range httputil.APIHeaders(token) {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := httputil.ReadOK(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
