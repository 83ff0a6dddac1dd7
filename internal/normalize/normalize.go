// Package normalize maps raw upstream listings onto the fixed Listing schema.
package normalize

import (
	"encoding/json"

	"github.com/lukman83/listing-miner/internal/models"
	"github.com/lukman83/listing-miner/internal/workerpool"
)

// Chunk is the half-open range [Start, End) of a batch.
type Chunk struct {
	Start, End int
}

// Chunkify splits n records into at most workers contiguous chunks whose
// sizes differ by at most one; the first n%workers chunks take the extra
// record.
func Chunkify(n, workers int) []Chunk {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	size, extra := n/workers, n%workers
	chunks := make([]Chunk, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		end := start + size
		if i < extra {
			end++
		}
		chunks = append(chunks, Chunk{Start: start, End: end})
		start = end
	}
	return chunks
}

// Normalizer converts batches of raw records concurrently.
type Normalizer struct {
	workers int
}

// New creates a Normalizer. workers <= 0 means one per CPU.
func New(workers int) *Normalizer {
	if workers <= 0 {
		workers = workerpool.DefaultWorkers()
	}
	return &Normalizer{workers: workers}
}

// Normalize converts every record, preserving input order. If any record
// violates the schema the whole batch is rejected with a *SchemaError for
// the lowest offending index.
func (n *Normalizer) Normalize(raw []models.RawRecord) ([]models.Listing, error) {
	chunks := Chunkify(len(raw), n.workers)
	parts, errs := workerpool.Map(n.workers, chunks, func(_ int, c Chunk) ([]models.Listing, error) {
		return normalizeChunk(raw, c)
	})
	if err := workerpool.FirstError(errs); err != nil {
		return nil, err
	}

	out := make([]models.Listing, 0, len(raw))
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

func normalizeChunk(raw []models.RawRecord, c Chunk) ([]models.Listing, error) {
	out := make([]models.Listing, 0, c.End-c.Start)
	for i := c.Start; i < c.End; i++ {
		l, err := Record(i, raw[i])
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Record normalizes a single raw record; index is only used for error
// reporting.
func Record(index int, raw models.RawRecord) (models.Listing, error) {
	var r rawListing
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Listing{}, &SchemaError{Index: index, Err: err}
	}

	var (
		l   models.Listing
		err error
	)
	fail := func(field string, err error) (models.Listing, error) {
		return models.Listing{}, &SchemaError{Index: index, Field: field, Err: err}
	}

	if l.ID, err = requireText(r.ID); err != nil {
		return fail("id", err)
	}
	if l.Name, err = requireText(r.Name); err != nil {
		return fail("name", err)
	}
	if l.DeliveryCost, err = requireFloat(r.deliveryAmount()); err != nil {
		return fail("delivery.lowestPrice.amount", err)
	}
	if l.Cost, err = requireFloat(r.priceAmount()); err != nil {
		return fail("sellingMode.price.amount", err)
	}
	stock, err := requireInt(r.stockAvailable())
	if err != nil {
		return fail("stock.available", err)
	}
	l.Stock = int(stock)
	category, err := requireInt(r.categoryID())
	if err != nil {
		return fail("category.id", err)
	}
	l.CategoryID = models.CategoryID(category)

	return l, nil
}
