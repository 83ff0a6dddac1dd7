package allegro

import (
	"errors"
	"fmt"

	"github.com/lukman83/listing-miner/internal/models"
)

var (
	// ErrAuth means the client-credentials exchange failed on every attempt.
	// Nothing can be fetched without a token, so callers treat it as fatal.
	ErrAuth = errors.New("allegro: token exchange failed")

	// ErrFetch means a page, or a whole first round of pages, could not be
	// fetched after retries.
	ErrFetch = errors.New("allegro: fetch failed")
)

// CategoryNotFoundError reports a category name absent under its parent.
type CategoryNotFoundError struct {
	Name   string
	Parent models.CategoryID // 0 for the root level
}

func (e *CategoryNotFoundError) Error() string {
	if e.Parent == 0 {
		return fmt.Sprintf("allegro: category %q not found at root level", e.Name)
	}
	return fmt.Sprintf("allegro: category %q not found under category %d", e.Name, e.Parent)
}
