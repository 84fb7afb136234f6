package domain

import (
	"context"
	"errors"
)

// ErrCatalogNotFound is returned by a CatalogRepository that has nothing stored yet
var ErrCatalogNotFound = errors.New("catalog not found")

// CatalogRepository persists the whole catalog. Save always replaces the
// stored snapshot; entries are given in insertion order.
type CatalogRepository interface {
	Load(ctx context.Context) ([]CatalogEntry, error)
	Save(ctx context.Context, entries []CatalogEntry) error
}
