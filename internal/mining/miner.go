// Package mining coordinates a mining run: search the phrase at the root
// level, re-query every category that dominates the root results, merge
// everything and persist it.
package mining

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lukman83/listing-miner/internal/aggregate"
	"github.com/lukman83/listing-miner/internal/allegro"
	"github.com/lukman83/listing-miner/internal/archive"
	"github.com/lukman83/listing-miner/internal/models"
	"github.com/lukman83/listing-miner/internal/normalize"
	"github.com/lukman83/listing-miner/internal/platform"
)

// ItemFetcher returns every raw listing for a phrase, optionally restricted
// to one category (0 for all categories).
type ItemFetcher interface {
	FetchItems(ctx context.Context, phrase string, category models.CategoryID) ([]models.RawRecord, error)
}

// CategoryNamer labels category ids for log output.
type CategoryNamer interface {
	CategoryNames(ctx context.Context, ids []models.CategoryID) map[models.CategoryID]string
}

// Options configures a Miner.
type Options struct {
	Threshold   int
	Phrases     []string
	DefaultMode archive.Mode
	Namer       CategoryNamer // optional
	Logger      *slog.Logger
}

// Miner runs mining for single phrases or the configured batch.
type Miner struct {
	items       ItemFetcher
	normalizer  *normalize.Normalizer
	store       archive.Store
	threshold   int
	phrases     []string
	defaultMode archive.Mode
	namer       CategoryNamer
	log         *slog.Logger
}

// New creates a Miner.
func New(items ItemFetcher, normalizer *normalize.Normalizer, store archive.Store, opts Options) *Miner {
	if opts.DefaultMode == "" {
		opts.DefaultMode = archive.ModeNewFile
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Miner{
		items:       items,
		normalizer:  normalizer,
		store:       store,
		threshold:   opts.Threshold,
		phrases:     opts.Phrases,
		defaultMode: opts.DefaultMode,
		namer:       opts.Namer,
		log:         opts.Logger,
	}
}

// Result describes one completed mining run.
type Result struct {
	RunID      string
	Phrase     string
	Archive    string
	Listings   []models.Listing
	Categories []models.CategoryID // relevant categories re-queried successfully
	Skipped    []models.CategoryID // relevant categories whose re-query failed
}

// Mine runs the whole pipeline for phrase and saves the merged table with
// mode. It returns an error, and persists nothing, when the root search
// cannot be fetched or normalized, or when no token can be obtained.
// A failing category re-query only drops that category's contribution.
func (m *Miner) Mine(ctx context.Context, phrase string, mode archive.Mode) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Phrase: phrase}
	log := m.log.With("run_id", res.RunID, "phrase", phrase)

	rootRaw, err := m.items.FetchItems(ctx, phrase, 0)
	if err != nil {
		log.Error("could not fetch root items", "error", err)
		return nil, fmt.Errorf("mine %q: root search: %w", phrase, err)
	}
	root, err := m.normalizer.Normalize(rootRaw)
	if err != nil {
		log.Error("could not normalize root items", "error", err)
		return nil, fmt.Errorf("mine %q: root search: %w", phrase, err)
	}

	relevant := allegro.RelevantCategories(root, m.threshold)
	log.Info("root search finished", "items", len(root), "relevant_categories", len(relevant))

	var labels map[models.CategoryID]string
	if m.namer != nil && len(relevant) > 0 {
		labels = m.namer.CategoryNames(ctx, relevant)
	}

	tables := [][]models.Listing{root}
	for _, category := range relevant {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clog := log.With("category", category)
		if name, ok := labels[category]; ok {
			clog = clog.With("category_name", name)
		}
		clog.Info("searching category")

		raw, err := m.items.FetchItems(ctx, phrase, category)
		if errors.Is(err, allegro.ErrAuth) {
			clog.Error("could not fetch token, aborting phrase", "error", err)
			return nil, fmt.Errorf("mine %q: category %d: %w", phrase, category, err)
		}
		if err != nil {
			clog.Error("could not fetch items in category", "error", err)
			res.Skipped = append(res.Skipped, category)
			continue
		}
		listings, err := m.normalizer.Normalize(raw)
		if err != nil {
			clog.Error("could not normalize items in category", "error", err)
			res.Skipped = append(res.Skipped, category)
			continue
		}

		tables = append(tables, listings)
		res.Categories = append(res.Categories, category)
	}

	res.Listings = aggregate.Merge(tables...)
	log.Info("fetched and parsed data", "items", len(res.Listings), "skipped_categories", len(res.Skipped))

	platform.Reportf(ctx, "Saving %d items for '%s'...", len(res.Listings), phrase)
	name, err := m.store.Save(ctx, phrase, res.Listings, mode)
	if err != nil {
		log.Error("could not save items", "mode", mode, "error", err)
		return nil, fmt.Errorf("mine %q: save: %w", phrase, err)
	}
	res.Archive = name
	log.Info("saved items", "archive", name, "mode", mode)

	return res, nil
}

// PhraseOutcome is the result of one phrase in a batch run.
type PhraseOutcome struct {
	Phrase string
	Result *Result
	Err    error
}

// MineAll mines every configured phrase with the default mode. A failing
// phrase is logged and never stops the batch; only cancellation does.
func (m *Miner) MineAll(ctx context.Context) []PhraseOutcome {
	out := make([]PhraseOutcome, 0, len(m.phrases))
	for _, phrase := range m.phrases {
		if ctx.Err() != nil {
			out = append(out, PhraseOutcome{Phrase: phrase, Err: ctx.Err()})
			continue
		}
		res, err := m.Mine(ctx, phrase, m.defaultMode)
		if err != nil {
			m.log.Warn("phrase failed, continuing batch", "phrase", phrase, "error", err)
		}
		out = append(out, PhraseOutcome{Phrase: phrase, Result: res, Err: err})
	}
	return out
}
