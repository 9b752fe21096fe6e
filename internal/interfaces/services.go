package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/cartera/internal/models"
)

// QuoteService is the quote port consumed by the refresh scheduler.
// Failures are reported as models.ErrQuoteUnavailable / models.ErrRateUnavailable.
type QuoteService interface {
	FetchPrice(ctx context.Context, symbol string, market models.Market) (float64, error)
	FetchReferenceRate(ctx context.Context) (float64, error)

	// ReferenceRate returns the last known rate (fetched or overridden).
	ReferenceRate() (rate float64, asOf time.Time, ok bool)
}

// PortfolioService is the mutable portfolio model.
type PortfolioService interface {
	AddWallet(name string) (int, error)
	RenameWallet(walletIndex int, name string) error
	RemoveWallet(walletIndex int) error
	AddInvestment(walletIndex int, data *models.Investment) (int, error)
	RemoveInvestment(walletIndex, investmentIndex int) error
	MoveInvestment(srcWallet, srcIndex, dstWallet, dstIndex int) error
	SetField(walletIndex, investmentIndex int, field models.Field, value string) error

	// Refresh write path, addressed by identity.
	SetCurrentPrice(id string, price float64) error
	ClearPurchasePrice(id string) error

	Investment(id string) (*models.Investment, bool)
	InvestmentIDs() []string
	Snapshot() *models.Portfolio

	Subscribe(fn func(models.Event)) (unsubscribe func())

	Load(ctx context.Context) error
	Save(ctx context.Context) error
}
