package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/cartera/internal/models"
)

// legacyWalletName names the single wallet created from a pre-wallet blob.
const legacyWalletName = "Cartera"

func newInvestmentID() string {
	return uuid.NewString()
}

// legacyNumber decodes the form values the browser app persisted: numbers,
// numeric strings, "" or null. Empty and unparseable values are unset.
type legacyNumber struct {
	value float64
	set   bool
}

func (n *legacyNumber) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*n = legacyNumber{value: num, set: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			*n = legacyNumber{}
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*n = legacyNumber{}
			return nil
		}
		*n = legacyNumber{value: num, set: true}
		return nil
	}
	if string(data) == "null" {
		*n = legacyNumber{}
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into number", string(data))
}

// ptr returns the value for a field that must be >= 0, or nil.
func (n legacyNumber) ptr() *float64 {
	if !n.set || n.value < 0 {
		return nil
	}
	return models.Float(n.value)
}

// legacyRow is one entry of "inversiones" or "stocks". Derived fields the
// browser also stored (difference, total) are ignored.
type legacyRow struct {
	Symbol       string       `json:"symbol"`
	Market       string       `json:"market"`
	Qty          legacyNumber `json:"qty"`
	StockValue   legacyNumber `json:"stockValue"`
	PrecioCompra legacyNumber `json:"precioCompra"`
	FechaCompra  string       `json:"fechaCompra"`
	DolarCompra  legacyNumber `json:"dolarCompra"`
}

type legacyWallet struct {
	Name        string       `json:"name"`
	Inversiones []*legacyRow `json:"inversiones"`
}

func (r *legacyRow) investment(id string) *models.Investment {
	inv := &models.Investment{
		ID:            id,
		Symbol:        strings.TrimSpace(r.Symbol),
		Market:        models.Market(strings.TrimSpace(r.Market)),
		Quantity:      r.Qty.ptr(),
		PurchasePrice: r.PrecioCompra.ptr(),
		CurrentPrice:  r.StockValue.ptr(),
	}
	if r.DolarCompra.set && r.DolarCompra.value > 0 {
		inv.ReferenceRateAtPurchase = models.Float(r.DolarCompra.value)
	}
	if d, err := time.Parse("2006-01-02", strings.TrimSpace(r.FechaCompra)); err == nil {
		inv.PurchaseDate = &d
	}
	return inv
}

// migrateWallets converts the unversioned multi-wallet blob.
func migrateWallets(data []byte, newID func() string) (*models.Portfolio, error) {
	var doc struct {
		Wallets []*legacyWallet `json:"wallets"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: legacy wallets: %v", models.ErrPersistenceCorrupt, err)
	}

	p := models.NewPortfolio()
	for _, lw := range doc.Wallets {
		if lw == nil {
			continue
		}
		name, err := models.WalletName(lw.Name)
		if err != nil {
			name = legacyWalletName
		}
		w := &models.Wallet{Name: name, Investments: []*models.Investment{}}
		for _, row := range lw.Inversiones {
			if row == nil {
				continue
			}
			w.Investments = append(w.Investments, row.investment(newID()))
		}
		p.Wallets = append(p.Wallets, w)
	}
	return p, nil
}

// migrateStocks converts the earliest single-list blob into one wallet.
func migrateStocks(data []byte, newID func() string) (*models.Portfolio, error) {
	var doc struct {
		Stocks []*legacyRow `json:"stocks"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: legacy stocks: %v", models.ErrPersistenceCorrupt, err)
	}

	w := &models.Wallet{Name: legacyWalletName, Investments: []*models.Investment{}}
	for _, row := range doc.Stocks {
		if row == nil {
			continue
		}
		w.Investments = append(w.Investments, row.investment(newID()))
	}
	return &models.Portfolio{Wallets: []*models.Wallet{w}}, nil
}
