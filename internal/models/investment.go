// Package models defines data structures for Cartera
package models

import (
	"math"
	"strings"
	"time"
)

// Market identifies the exchange a symbol is quoted on.
type Market string

// MarketBCBA is the Buenos Aires exchange. Its symbols are quoted in ARS and
// carry a ".BA" suffix at the quote provider.
const MarketBCBA Market = "BCBA"

// Normalize trims and upper-cases the market code.
func (m Market) Normalize() Market {
	return Market(strings.ToUpper(strings.TrimSpace(string(m))))
}

// IsBCBA reports whether m is the Buenos Aires market, ignoring case.
func (m Market) IsBCBA() bool {
	return m.Normalize() == MarketBCBA
}

// Currency returns the ISO code totals in this market are denominated in.
func (m Market) Currency() string {
	if m.IsBCBA() {
		return "ARS"
	}
	return "USD"
}

// Investment is a single holding row inside a wallet.
// Optional numeric fields are nil when unset; nil never means zero.
type Investment struct {
	ID                      string     `json:"id"`
	Symbol                  string     `json:"symbol"`
	Market                  Market     `json:"market"`
	Quantity                *float64   `json:"quantity,omitempty"`
	PurchasePrice           *float64   `json:"purchase_price,omitempty"`
	CurrentPrice            *float64   `json:"current_price,omitempty"`
	PurchaseDate            *time.Time `json:"purchase_date,omitempty"`
	ReferenceRateAtPurchase *float64   `json:"reference_rate_at_purchase,omitempty"`
}

// Float returns a pointer to v, for populating optional fields.
func Float(v float64) *float64 {
	return &v
}

// HasSymbol reports whether the row has a non-blank symbol.
func (inv *Investment) HasSymbol() bool {
	return strings.TrimSpace(inv.Symbol) != ""
}

// HasQuoteKey reports whether the row has both a symbol and a market, the
// minimum needed to ask the quote provider for a price.
func (inv *Investment) HasQuoteKey() bool {
	return strings.TrimSpace(inv.Symbol) != "" && strings.TrimSpace(string(inv.Market)) != ""
}

// Clone returns a deep copy of the investment, identity included.
func (inv *Investment) Clone() *Investment {
	if inv == nil {
		return nil
	}
	c := *inv
	c.Quantity = cloneFloat(inv.Quantity)
	c.PurchasePrice = cloneFloat(inv.PurchasePrice)
	c.CurrentPrice = cloneFloat(inv.CurrentPrice)
	c.ReferenceRateAtPurchase = cloneFloat(inv.ReferenceRateAtPurchase)
	if inv.PurchaseDate != nil {
		d := *inv.PurchaseDate
		c.PurchaseDate = &d
	}
	return &c
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Validate checks the numeric invariants: amounts are finite and not
// negative, and a reference rate, when set, is positive.
func (inv *Investment) Validate() error {
	check := func(field Field, p *float64, strict bool) error {
		if p == nil {
			return nil
		}
		v := *p
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || (strict && v == 0) {
			return &ValidationError{Field: string(field), Reason: "out of range"}
		}
		return nil
	}
	if err := check(FieldQuantity, inv.Quantity, false); err != nil {
		return err
	}
	if err := check(FieldPurchasePrice, inv.PurchasePrice, false); err != nil {
		return err
	}
	if err := check(FieldCurrentPrice, inv.CurrentPrice, false); err != nil {
		return err
	}
	return check(FieldReferenceRate, inv.ReferenceRateAtPurchase, true)
}
