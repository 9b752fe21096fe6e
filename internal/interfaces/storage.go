package interfaces

import (
	"context"
	"errors"

	"github.com/bobmcallan/cartera/internal/models"
)

// ErrKeyNotFound is returned by KeyValueStore.Get for absent keys.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the raw local store a snapshot blob lives in
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// PortfolioStore is the persistence port.
// Load never fails on missing or corrupt data; it returns an empty portfolio.
// Save overwrites the whole stored snapshot.
type PortfolioStore interface {
	Load(ctx context.Context) (*models.Portfolio, error)
	Save(ctx context.Context, p *models.Portfolio) error
}
