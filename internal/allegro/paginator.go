package allegro

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lukman83/listing-miner/internal/models"
	"github.com/lukman83/listing-miner/internal/platform"
	"github.com/lukman83/listing-miner/internal/workerpool"
)

// Paginator walks the offset space of a search in rounds of concurrent page
// fetches, one page per worker.
type Paginator struct {
	fetcher  PageFetcher
	workers  int
	pageSize int
	log      *slog.Logger
}

// NewPaginator creates a paginator. workers <= 0 means one per CPU.
func NewPaginator(fetcher PageFetcher, workers, pageSize int, log *slog.Logger) *Paginator {
	if workers <= 0 {
		workers = workerpool.DefaultWorkers()
	}
	if pageSize <= 0 {
		pageSize = MaxPageSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Paginator{fetcher: fetcher, workers: workers, pageSize: pageSize, log: log}
}

// FetchAll collects every record the source returns for phrase.
//
// Each round fetches workers pages at consecutive offsets and keeps them in
// offset order; a failed page contributes nothing. Paging stops after the
// first round that returns fewer than workers*pageSize records.
//
// A first round in which every page failed is reported as ErrFetch, while a
// search that simply matches nothing returns an empty result and nil.
func (p *Paginator) FetchAll(ctx context.Context, phrase, token string, category models.CategoryID) ([]models.RawRecord, error) {
	roundSize := p.workers * p.pageSize
	scope := "ROOT"
	if category != 0 {
		scope = fmt.Sprintf("%d", category)
	}
	platform.Reportf(ctx, "Searching '%s' in %s category...", phrase, scope)

	var all []models.RawRecord
	for round, start := 0, 0; ; round, start = round+1, start+roundSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reqs := make([]PageRequest, p.workers)
		for i := range reqs {
			reqs[i] = PageRequest{
				Phrase:     phrase,
				Offset:     start + i*p.pageSize,
				Limit:      p.pageSize,
				CategoryID: category,
			}
		}

		pages, errs := workerpool.Map(p.workers, reqs, func(_ int, req PageRequest) ([]models.RawRecord, error) {
			return p.fetcher.FetchPage(ctx, req, token)
		})

		failed := 0
		got := 0
		for i, page := range pages {
			if errs[i] != nil {
				failed++
				p.log.Warn("page fetch failed",
					"phrase", phrase, "category", scope, "offset", reqs[i].Offset, "error", errs[i])
				continue
			}
			got += len(page)
			all = append(all, page...)
		}

		if round == 0 && failed == len(reqs) {
			return nil, fmt.Errorf("%w: every page of the first round failed for %q in %s: %w",
				ErrFetch, phrase, scope, workerpool.FirstError(errs))
		}

		p.log.Debug("round finished", "phrase", phrase, "category", scope,
			"round", round, "records", got, "failed_pages", failed)

		if got < roundSize {
			break
		}
	}

	platform.Reportf(ctx, "Found %d items in %s category", len(all), scope)
	return all, nil
}

// FetchItems acquires a fresh token and paginates the whole search.
func (c *Client) FetchItems(ctx context.Context, phrase string, category models.CategoryID) ([]models.RawRecord, error) {
	token, err := c.tokens.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return c.paginator.FetchAll(ctx, phrase, token, category)
}
