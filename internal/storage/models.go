package storage

import (
	"time"
)

// Source is a merchant feed products are imported from.
type Source struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	LastFetched  time.Time `json:"last_fetched"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Product is one catalog entry. Price is in whole currency units.
type Product struct {
	ID          string            `json:"id"`
	SourceID    string            `json:"source_id"`
	SKU         string            `json:"sku"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	URL         string            `json:"url"`
	ImageURL    string            `json:"image_url"`
	Brand       string            `json:"brand"`
	Store       string            `json:"store"`
	Category    string            `json:"category"`
	Price       int               `json:"price"`
	Rating      int               `json:"rating"`
	InStock     bool              `json:"in_stock"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Specs       map[string]string `json:"specs,omitempty"`
	Updated     time.Time         `json:"updated"`
}

// Availability is the textual stock state used for faceting.
func (p *Product) Availability() string {
	if p.InStock {
		return "in stock"
	}
	return "out of stock"
}
