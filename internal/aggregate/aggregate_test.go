package aggregate

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/lukman83/listing-miner/internal/models"
)

func listing(id string, cost float64) models.Listing {
	return models.Listing{ID: id, Name: "item " + id, Cost: cost}
}

func TestMergeFirstWins(t *testing.T) {
	root := []models.Listing{listing("a", 1), listing("b", 1)}
	cat := []models.Listing{listing("b", 2), listing("c", 2), listing("c", 3)}

	got := Merge(root, cat)

	assert.Equal(t, []models.Listing{listing("a", 1), listing("b", 1), listing("c", 2)}, got)
}

func TestMergeLatestLastWins(t *testing.T) {
	old := []models.Listing{listing("a", 1), listing("b", 1), listing("c", 1)}
	fresh := []models.Listing{listing("b", 9), listing("d", 9)}

	got := MergeLatest(old, fresh)

	assert.Equal(t, []models.Listing{listing("a", 1), listing("c", 1), listing("b", 9), listing("d", 9)}, got)
}

func randomTables(r *rand.Rand) [][]models.Listing {
	tables := make([][]models.Listing, 1+r.IntN(4))
	for i := range tables {
		for j := r.IntN(30); j > 0; j-- {
			tables[i] = append(tables[i], listing(fmt.Sprint(r.IntN(25)), float64(i*100+j)))
		}
	}
	return tables
}

func TestMergeUniquenessProperty(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 200; iter++ {
		tables := randomTables(r)

		ids := map[string]bool{}
		for _, tbl := range tables {
			for _, l := range tbl {
				ids[l.ID] = true
			}
		}

		for name, merged := range map[string][]models.Listing{
			"first": Merge(tables...),
			"last":  MergeLatest(tables...),
		} {
			seen := map[string]bool{}
			for _, l := range merged {
				if seen[l.ID] {
					t.Fatalf("%s: duplicate id %s", name, l.ID)
				}
				seen[l.ID] = true
			}
			if len(seen) != len(ids) {
				t.Fatalf("%s: got %d ids, want %d", name, len(seen), len(ids))
			}
		}
	}
}

func TestMergeLatestFreshnessProperty(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for iter := 0; iter < 200; iter++ {
		tables := randomTables(r)
		old, fresh := tables[0], tables[len(tables)-1]
		if len(tables) == 1 {
			fresh = nil
		}

		want := map[string]models.Listing{}
		for _, l := range old {
			want[l.ID] = l
		}
		for _, l := range fresh {
			want[l.ID] = l
		}

		merged := MergeLatest(old, fresh)
		assert.Equal(t, len(want), len(merged))
		for _, l := range merged {
			assert.Equal(t, want[l.ID], l)
		}
	}
}
