package models

import "encoding/json"

// RawRecord is one listing exactly as delivered by the upstream search API.
// It is decoded lazily by the normalizer.
type RawRecord = json.RawMessage

// CategoryID identifies a marketplace category.
type CategoryID int64

// Listing is the fixed output row every raw record is normalized into.
type Listing struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	DeliveryCost float64    `json:"delivery_cost"`
	Cost         float64    `json:"cost"`
	Stock        int        `json:"stock"`
	CategoryID   CategoryID `json:"category_id"`
}

// Category is a node of the marketplace category tree.
type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Leaf   bool   `json:"leaf"`
	Parent *struct {
		ID string `json:"id"`
	} `json:"parent,omitempty"`
}
