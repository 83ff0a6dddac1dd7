package allegro

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/lukman83/listing-miner/internal/models"
	"github.com/lukman83/listing-miner/internal/retry"
)

// PageRequest addresses one page of a listing search.
type PageRequest struct {
	Phrase     string
	Offset     int
	Limit      int
	CategoryID models.CategoryID // 0 searches every category
}

// PageFetcher fetches a single page of raw listing records.
type PageFetcher interface {
	FetchPage(ctx context.Context, req PageRequest, token string) ([]models.RawRecord, error)
}

type listingResponse struct {
	Items *struct {
		Regular  []models.RawRecord `json:"regular"`
		Promoted []models.RawRecord `json:"promoted"`
	} `json:"items"`
}

func (c *Client) listingURL(req PageRequest) string {
	q := url.Values{}
	q.Set("phrase", req.Phrase)
	q.Set("offset", strconv.Itoa(req.Offset))
	q.Set("limit", strconv.Itoa(req.Limit))
	if req.CategoryID != 0 {
		q.Set("category.id", strconv.FormatInt(int64(req.CategoryID), 10))
	}
	return c.host + "/offers/listing?" + q.Encode()
}

// FetchPage returns the regular placements of one page followed by its
// promoted placements. Transport and decode failures are retried; a body
// without an items container is rejected straight away. Every failure wraps
// ErrFetch.
func (c *Client) FetchPage(ctx context.Context, req PageRequest, token string) ([]models.RawRecord, error) {
	if req.Limit <= 0 {
		req.Limit = c.pageSize
	}
	u := c.listingURL(req)

	page, err := retry.Do(ctx, c.attempts, c.backoff, func(ctx context.Context) (*listingResponse, error) {
		var resp listingResponse
		if err := c.get(ctx, u, token, &resp); err != nil {
			c.log.Debug("listing query attempt failed", "url", u, "error", err)
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		c.log.Warn("could not fetch query", "url", u, "error", err)
		return nil, fmt.Errorf("%w: offset %d: %w", ErrFetch, req.Offset, err)
	}
	if page.Items == nil {
		return nil, fmt.Errorf("%w: offset %d: response has no items container", ErrFetch, req.Offset)
	}

	records := make([]models.RawRecord, 0, len(page.Items.Regular)+len(page.Items.Promoted))
	records = append(records, page.Items.Regular...)
	records = append(records, page.Items.Promoted...)
	return records, nil
}
