// Package interfaces defines service contracts for Cartera
package interfaces

import (
	"context"

	"github.com/bobmcallan/cartera/internal/models"
)

// QuoteClient fetches the last traded price of a symbol from an upstream provider
type QuoteClient interface {
	// GetPrice returns the latest price for symbol on market, in the
	// market's currency.
	GetPrice(ctx context.Context, symbol string, market models.Market) (float64, error)
}

// RateClient fetches the reference USD exchange rate (CCL sell side)
type RateClient interface {
	GetReferenceRate(ctx context.Context) (float64, error)
}
