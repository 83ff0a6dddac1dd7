package normalize

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/lukman83/listing-miner/internal/models"
)

const sampleRecord = `{
	"id": "1",
	"name": "A",
	"delivery": {"lowestPrice": {"amount": "5.00", "currency": "PLN"}},
	"sellingMode": {"format": "BUY_NOW", "price": {"amount": "10.00", "currency": "PLN"}},
	"stock": {"unit": "UNIT", "available": "3"},
	"category": {"id": "42"}
}`

func record(id string, category int) models.RawRecord {
	return models.RawRecord(fmt.Sprintf(`{"id":%q,"name":"item %s",
		"delivery":{"lowestPrice":{"amount":"1.50"}},
		"sellingMode":{"price":{"amount":"20.00"}},
		"stock":{"available":7},
		"category":{"id":"%d"}}`, id, id, category))
}

func TestRecordScenario(t *testing.T) {
	l, err := Record(0, models.RawRecord(sampleRecord))

	assert.Equal(t, nil, err)
	assert.Equal(t, models.Listing{
		ID:           "1",
		Name:         "A",
		DeliveryCost: 5.0,
		Cost:         10.0,
		Stock:        3,
		CategoryID:   42,
	}, l)
}

func TestRecordAcceptsBareNumbers(t *testing.T) {
	l, err := Record(0, record("9", 13))
	assert.Equal(t, nil, err)
	assert.Equal(t, 7, l.Stock)
	assert.Equal(t, models.CategoryID(13), l.CategoryID)
}

func TestRecordSchemaViolations(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		field string
	}{
		{"missing id", `{"name":"A"}`, "id"},
		{"null name", `{"id":"1","name":null}`, "name"},
		{"missing delivery", `{"id":"1","name":"A","sellingMode":{"price":{"amount":"1"}}}`, "delivery.lowestPrice.amount"},
		{"bad price", `{"id":"1","name":"A","delivery":{"lowestPrice":{"amount":"1"}},"sellingMode":{"price":{"amount":"ten"}}}`, "sellingMode.price.amount"},
		{"fractional stock", `{"id":"1","name":"A","delivery":{"lowestPrice":{"amount":"1"}},"sellingMode":{"price":{"amount":"1"}},"stock":{"available":"2.5"}}`, "stock.available"},
		{"missing category", `{"id":"1","name":"A","delivery":{"lowestPrice":{"amount":"1"}},"sellingMode":{"price":{"amount":"1"}},"stock":{"available":"2"}}`, "category.id"},
		{"not an object", `["x"]`, ""},
		{"boolean id", `{"id":true}`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Record(4, models.RawRecord(tc.raw))
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("expected SchemaError, got %v", err)
			}
			assert.Equal(t, 4, se.Index)
			assert.Equal(t, tc.field, se.Field)
		})
	}
}

func TestChunkify(t *testing.T) {
	assert.Equal(t, []Chunk{{0, 3}, {3, 5}}, Chunkify(5, 2))
	assert.Equal(t, []Chunk{{0, 2}, {2, 4}, {4, 6}}, Chunkify(6, 3))
	assert.Equal(t, []Chunk{{0, 1}, {1, 2}}, Chunkify(2, 8))
	assert.Equal(t, 0, len(Chunkify(0, 4)))

	// every record covered exactly once, never more chunks than workers
	for n := 1; n < 40; n++ {
		for w := 1; w < 10; w++ {
			chunks := Chunkify(n, w)
			if len(chunks) > w {
				t.Fatalf("n=%d w=%d: %d chunks", n, w, len(chunks))
			}
			next := 0
			for _, c := range chunks {
				if c.Start != next || c.End <= c.Start {
					t.Fatalf("n=%d w=%d: bad chunk %+v", n, w, c)
				}
				next = c.End
			}
			if next != n {
				t.Fatalf("n=%d w=%d: covered %d", n, w, next)
			}
		}
	}
}

func TestNormalizePreservesOrderAndIsDeterministic(t *testing.T) {
	var raw []models.RawRecord
	for i := 0; i < 53; i++ {
		raw = append(raw, record(fmt.Sprint(i), i%4))
	}

	n := New(4)
	first, err := n.Normalize(raw)
	assert.Equal(t, nil, err)
	second, err := n.Normalize(raw)
	assert.Equal(t, nil, err)

	assert.Equal(t, 53, len(first))
	assert.Equal(t, first, second)
	for i, l := range first {
		assert.Equal(t, fmt.Sprint(i), l.ID)
	}
}

func TestNormalizeRejectsWholeBatch(t *testing.T) {
	raw := []models.RawRecord{record("1", 1), record("2", 1), models.RawRecord(`{"id":"3"}`), record("4", 1)}

	out, err := New(2).Normalize(raw)

	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	assert.Equal(t, 2, se.Index)
	assert.Equal(t, true, errors.Is(err, ErrMissingField))
	assert.Equal(t, 0, len(out))
}

func TestNormalizeEmpty(t *testing.T) {
	out, err := New(4).Normalize(nil)
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(out))
}
