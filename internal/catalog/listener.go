package catalog

import "github.com/pders01/shelf/internal/storage"

// Querier is the query API used by the TUI.
type Querier interface {
	Query(req Request) (*Result, error)
}

// UpdateListener is notified after products of a source were stored.
type UpdateListener interface {
	OnProductsUpdated(src *storage.Source, products []*storage.Product)
}

// DeleteListener is notified after a source and its products were removed.
type DeleteListener interface {
	OnSourceDeleted(sourceID string)
}

// DocCounter reports index size for the status bar.
type DocCounter interface {
	DocCount() (int, error)
}

var (
	_ Querier        = (*Catalog)(nil)
	_ UpdateListener = (*Catalog)(nil)
	_ DeleteListener = (*Catalog)(nil)
	_ DocCounter     = (*Catalog)(nil)
)
