package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMissingField is wrapped by SchemaError when a required field is absent
// or null.
var ErrMissingField = errors.New("missing required field")

// SchemaError reports the first record of a batch that could not be mapped
// onto the output schema.
type SchemaError struct {
	Index int    // position of the record in the batch
	Field string // dotted path of the offending field, empty if the record itself is malformed
	Err   error
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("normalize: record %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("normalize: record %d: field %s: %v", e.Index, e.Field, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// scalar holds a JSON string or number verbatim. The upstream API encodes
// amounts and ids as strings but some fields arrive as bare numbers.
type scalar struct {
	text string
}

func (s *scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return errors.New("empty value")
	}
	switch b[0] {
	case '"':
		return json.Unmarshal(b, &s.text)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		s.text = string(b)
		return nil
	default:
		return fmt.Errorf("expected string or number, got %s", b)
	}
}

type amount struct {
	Amount *scalar `json:"amount"`
}

// rawListing is the subset of an upstream listing the output schema needs.
// Pointers distinguish absent or null fields from zero values.
type rawListing struct {
	ID       *scalar `json:"id"`
	Name     *scalar `json:"name"`
	Delivery *struct {
		LowestPrice *amount `json:"lowestPrice"`
	} `json:"delivery"`
	SellingMode *struct {
		Price *amount `json:"price"`
	} `json:"sellingMode"`
	Stock *struct {
		Available *scalar `json:"available"`
	} `json:"stock"`
	Category *struct {
		ID *scalar `json:"id"`
	} `json:"category"`
}

func (r *rawListing) deliveryAmount() *scalar {
	if r.Delivery == nil || r.Delivery.LowestPrice == nil {
		return nil
	}
	return r.Delivery.LowestPrice.Amount
}

func (r *rawListing) priceAmount() *scalar {
	if r.SellingMode == nil || r.SellingMode.Price == nil {
		return nil
	}
	return r.SellingMode.Price.Amount
}

func (r *rawListing) stockAvailable() *scalar {
	if r.Stock == nil {
		return nil
	}
	return r.Stock.Available
}

func (r *rawListing) categoryID() *scalar {
	if r.Category == nil {
		return nil
	}
	return r.Category.ID
}

func requireText(s *scalar) (string, error) {
	if s == nil {
		return "", ErrMissingField
	}
	return s.text, nil
}

func requireFloat(s *scalar) (float64, error) {
	if s == nil {
		return 0, ErrMissingField
	}
	return strconv.ParseFloat(s.text, 64)
}

func requireInt(s *scalar) (int64, error) {
	if s == nil {
		return 0, ErrMissingField
	}
	return strconv.ParseInt(s.text, 10, 64)
}
