package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/lukman83/listing-miner/internal/models"
)

type backend struct {
	name string
	open func(t *testing.T, now func() time.Time) Store
}

var backends = []backend{
	{"csv", func(t *testing.T, now func() time.Time) Store {
		s, err := NewCSVStore(filepath.Join(t.TempDir(), "db"))
		if err != nil {
			t.Fatalf("open csv store: %v", err)
		}
		s.now = now
		return s
	}},
	{"sqlite", func(t *testing.T, now func() time.Time) Store {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "archive.db"))
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		s.now = now
		t.Cleanup(func() { s.Close() })
		return s
	}},
}

func fixedClock() func() time.Time {
	at := time.Unix(1700000000, 0)
	return func() time.Time { return at }
}

func listing(id string, cost float64) models.Listing {
	return models.Listing{
		ID:           id,
		Name:         "Zegarek, \"klasyczny\" " + id,
		DeliveryCost: 8.99,
		Cost:         cost,
		Stock:        3,
		CategoryID:   258832,
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("append")
	assert.Equal(t, nil, err)
	assert.Equal(t, ModeAppend, m)

	_, err = ParseMode("overwrite")
	assert.NotEqual(t, nil, err)
}

func TestBaseName(t *testing.T) {
	name, err := BaseName(" zegarek/męski ")
	assert.Equal(t, nil, err)
	assert.Equal(t, "zegarek_męski", name)

	_, err = BaseName("  ")
	assert.NotEqual(t, nil, err)
	_, err = BaseName("..")
	assert.NotEqual(t, nil, err)
}

func TestIsArchiveOf(t *testing.T) {
	assert.Equal(t, true, isArchiveOf("zegarek", "zegarek"))
	assert.Equal(t, true, isArchiveOf("zegarek_1700000000", "zegarek"))
	assert.Equal(t, true, isArchiveOf("zegarek_1700000000-2", "zegarek"))
	assert.Equal(t, false, isArchiveOf("zegarek_meski", "zegarek"))
	assert.Equal(t, false, isArchiveOf("zegarek_meski_1700000000", "zegarek"))
}

func TestCheckName(t *testing.T) {
	for _, name := range []string{"zegarek", "zegarek_1700000000-1", "zegarek męski"} {
		assert.Equal(t, nil, checkName(name))
	}
	for _, name := range []string{"", ".", "..", "../secret", "a/b", `a\b`, "a\x00b"} {
		assert.NotEqual(t, nil, checkName(name))
	}
}

func TestSortArchivesNewestFirst(t *testing.T) {
	names := []string{"p_1700000000", "p_1700000000-1", "p", "p_1700000001", "p_999999999", "p_1700000000-10"}
	sortArchives(names, "p")
	assert.Equal(t, []string{
		"p", "p_1700000001", "p_1700000000-10", "p_1700000000-1", "p_1700000000", "p_999999999",
	}, names)
}

func TestCSVLoadStaysInsideDir(t *testing.T) {
	root := t.TempDir()
	secret := "id,name,delivery_cost,cost,stock,category_id\nX,leaked,1,2,3,4\n"
	if err := os.WriteFile(filepath.Join(root, "secret.csv"), []byte(secret), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewCSVStore(filepath.Join(root, "db"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(context.Background(), "../secret")
	assert.NotEqual(t, nil, err)
	assert.Equal(t, 0, len(got))
	assert.Equal(t, false, errors.Is(err, ErrNotFound))
}

func TestStores(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			t.Run("load missing", func(t *testing.T) {
				s := b.open(t, fixedClock())
				_, err := s.Load(context.Background(), "nothing")
				assert.Equal(t, true, errors.Is(err, ErrNotFound))
			})

			t.Run("snapshot round trip", func(t *testing.T) {
				s := b.open(t, fixedClock())
				ctx := context.Background()
				x := []models.Listing{listing("1", 10), listing("2", 20.5), listing("3", 0.1)}

				name, err := s.Save(ctx, "zegarek", x, ModeNewFile)
				assert.Equal(t, nil, err)
				assert.Equal(t, "zegarek_1700000000", name)

				got, err := s.Load(ctx, name)
				assert.Equal(t, nil, err)
				assert.Equal(t, x, got)

				// the append archive is untouched by snapshots
				_, err = s.Load(ctx, "zegarek")
				assert.Equal(t, true, errors.Is(err, ErrNotFound))
			})

			t.Run("snapshot names never collide", func(t *testing.T) {
				s := b.open(t, fixedClock())
				ctx := context.Background()

				first, err := s.Save(ctx, "zegarek", []models.Listing{listing("1", 1)}, ModeNewFile)
				assert.Equal(t, nil, err)
				second, err := s.Save(ctx, "zegarek", []models.Listing{listing("2", 2)}, ModeNewFile)
				assert.Equal(t, nil, err)
				assert.Equal(t, "zegarek_1700000000-1", second)

				got, _ := s.Load(ctx, first)
				assert.Equal(t, []models.Listing{listing("1", 1)}, got)
				got, _ = s.Load(ctx, second)
				assert.Equal(t, []models.Listing{listing("2", 2)}, got)
			})

			t.Run("append creates then merges", func(t *testing.T) {
				s := b.open(t, fixedClock())
				ctx := context.Background()

				old := []models.Listing{listing("1", 10), listing("2", 20), listing("3", 30)}
				name, err := s.Save(ctx, "zegarek", old, ModeAppend)
				assert.Equal(t, nil, err)
				assert.Equal(t, "zegarek", name)

				got, err := s.Load(ctx, "zegarek")
				assert.Equal(t, nil, err)
				assert.Equal(t, old, got)

				fresh := []models.Listing{listing("2", 99), listing("4", 40)}
				_, err = s.Save(ctx, "zegarek", fresh, ModeAppend)
				assert.Equal(t, nil, err)

				got, err = s.Load(ctx, "zegarek")
				assert.Equal(t, nil, err)
				// |old ∪ new| by id, new values win
				assert.Equal(t, []models.Listing{
					listing("1", 10), listing("3", 30), listing("2", 99), listing("4", 40),
				}, got)
			})

			t.Run("empty archive exists", func(t *testing.T) {
				s := b.open(t, fixedClock())
				ctx := context.Background()

				_, err := s.Save(ctx, "pusty", nil, ModeAppend)
				assert.Equal(t, nil, err)
				got, err := s.Load(ctx, "pusty")
				assert.Equal(t, nil, err)
				assert.Equal(t, 0, len(got))
			})

			t.Run("list", func(t *testing.T) {
				s := b.open(t, fixedClock())
				ctx := context.Background()

				s.Save(ctx, "zegarek", nil, ModeNewFile)
				s.Save(ctx, "zegarek", nil, ModeNewFile)
				s.Save(ctx, "zegarek", nil, ModeAppend)
				s.Save(ctx, "zegarek meski", nil, ModeAppend)

				names, err := s.List(ctx, "zegarek")
				assert.Equal(t, nil, err)
				assert.Equal(t, []string{"zegarek", "zegarek_1700000000-1", "zegarek_1700000000"}, names)
			})

			t.Run("text survives control characters", func(t *testing.T) {
				s := b.open(t, fixedClock())
				ctx := context.Background()
				x := []models.Listing{
					{ID: "cr\r\nlf", Name: "a\r\nb", Cost: 1},
					{ID: `back\slash`, Name: "lone\rcr \\r literal\nlf", Cost: 2},
				}

				name, err := s.Save(ctx, "zegarek", x, ModeNewFile)
				assert.Equal(t, nil, err)
				got, err := s.Load(ctx, name)
				assert.Equal(t, nil, err)
				assert.Equal(t, x, got)
			})

			t.Run("duplicate ids collapse to the last", func(t *testing.T) {
				s := b.open(t, fixedClock())
				ctx := context.Background()
				x := []models.Listing{listing("1", 10), listing("2", 20), listing("1", 11)}

				name, err := s.Save(ctx, "zegarek", x, ModeNewFile)
				assert.Equal(t, nil, err)
				got, err := s.Load(ctx, name)
				assert.Equal(t, nil, err)
				assert.Equal(t, []models.Listing{listing("2", 20), listing("1", 11)}, got)

				_, err = s.Save(ctx, "zegarek", x, ModeAppend)
				assert.Equal(t, nil, err)
				got, err = s.Load(ctx, "zegarek")
				assert.Equal(t, nil, err)
				assert.Equal(t, []models.Listing{listing("2", 20), listing("1", 11)}, got)
			})

			t.Run("rejects names outside the store", func(t *testing.T) {
				s := b.open(t, fixedClock())
				_, err := s.Load(context.Background(), "../zegarek")
				assert.NotEqual(t, nil, err)
			})

			t.Run("rejects unknown mode", func(t *testing.T) {
				s := b.open(t, fixedClock())
				_, err := s.Save(context.Background(), "zegarek", nil, Mode("overwrite"))
				assert.NotEqual(t, nil, err)
			})
		})
	}
}
