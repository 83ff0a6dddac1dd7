package allegro

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/lukman83/listing-miner/internal/models"
	"github.com/lukman83/listing-miner/internal/retry"
)

// CategoryLister lists the direct children of a category.
type CategoryLister interface {
	Subcategories(ctx context.Context, token string, parent models.CategoryID) ([]models.Category, error)
}

type categoriesResponse struct {
	Categories []models.Category `json:"categories"`
}

// Subcategories lists the children of parent, or the top-level categories
// when parent is 0.
func (c *Client) Subcategories(ctx context.Context, token string, parent models.CategoryID) ([]models.Category, error) {
	u := c.host + "/sale/categories"
	if parent != 0 {
		u += "?" + url.Values{"parent.id": {strconv.FormatInt(int64(parent), 10)}}.Encode()
	}

	resp, err := retry.Do(ctx, c.attempts, c.backoff, func(ctx context.Context) (*categoriesResponse, error) {
		var out categoriesResponse
		if err := c.get(ctx, u, token, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: subcategories of %d: %w", ErrFetch, parent, err)
	}
	return resp.Categories, nil
}

// CategoryName looks up the display name of a single category.
func (c *Client) CategoryName(ctx context.Context, token string, id models.CategoryID) (string, error) {
	u := fmt.Sprintf("%s/sale/categories/%d", c.host, id)

	cat, err := retry.Do(ctx, c.attempts, c.backoff, func(ctx context.Context) (*models.Category, error) {
		var out models.Category
		if err := c.get(ctx, u, token, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: category %d: %w", ErrFetch, id, err)
	}
	return cat.Name, nil
}

// CategoryNames labels ids with their display names using one token.
// Lookups that fail are left out of the map; labels are informational.
func (c *Client) CategoryNames(ctx context.Context, ids []models.CategoryID) map[models.CategoryID]string {
	names := make(map[models.CategoryID]string, len(ids))
	if len(ids) == 0 {
		return names
	}
	token, err := c.tokens.Acquire(ctx)
	if err != nil {
		c.log.Debug("no token for category names", "error", err)
		return names
	}
	for _, id := range ids {
		name, err := c.CategoryName(ctx, token, id)
		if err != nil {
			c.log.Debug("category name lookup failed", "category", id, "error", err)
			continue
		}
		names[id] = name
	}
	return names
}

// Explorer resolves category paths by name.
type Explorer struct {
	lister CategoryLister
	tokens TokenSource
}

// NewExplorer creates an Explorer.
func NewExplorer(lister CategoryLister, tokens TokenSource) *Explorer {
	return &Explorer{lister: lister, tokens: tokens}
}

// ResolveTree walks names from the root down, one level per name, and
// returns the id resolved at every level. It stops at the first name that is
// missing at its level with a *CategoryNotFoundError.
func (e *Explorer) ResolveTree(ctx context.Context, names []string) ([]models.CategoryID, error) {
	if len(names) == 0 {
		return nil, errors.New("allegro: empty category tree")
	}

	token, err := e.tokens.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]models.CategoryID, 0, len(names))
	var parent models.CategoryID
	for _, name := range names {
		subs, err := e.lister.Subcategories(ctx, token, parent)
		if err != nil {
			return nil, err
		}

		byName := make(map[string]string, len(subs))
		for _, s := range subs {
			byName[s.Name] = s.ID
		}
		raw, ok := byName[name]
		if !ok {
			return nil, &CategoryNotFoundError{Name: name, Parent: parent}
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("allegro: category %q has non-numeric id %q", name, raw)
		}

		parent = models.CategoryID(id)
		ids = append(ids, parent)
	}
	return ids, nil
}

// RelevantCategories returns every category that occurs in more than
// threshold listings, most frequent first (ties by ascending id).
func RelevantCategories(listings []models.Listing, threshold int) []models.CategoryID {
	counts := make(map[models.CategoryID]int)
	for _, l := range listings {
		counts[l.CategoryID]++
	}

	var out []models.CategoryID
	for id, n := range counts {
		if n > threshold {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
