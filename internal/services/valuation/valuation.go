// Package valuation computes row and aggregate metrics over portfolio snapshots.
//
// Every function is pure. A metric that cannot be computed from the data at
// hand is reported with ok == false instead of a zero, NaN or Inf.
package valuation

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/cartera/internal/models"
)

// percentPlaces is the rounding applied to percentages and values derived from them.
const percentPlaces = 2

var hundred = decimal.NewFromInt(100)

// Holdings is anything that can list investments: a wallet or a whole portfolio.
type Holdings interface {
	Holdings() []*models.Investment
}

var (
	_ Holdings = (*models.Wallet)(nil)
	_ Holdings = (*models.Portfolio)(nil)
)

func dec(p *float64) (decimal.Decimal, bool) {
	if p == nil {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(*p), true
}

// quantity returns the row quantity when it is present and positive.
func quantity(inv *models.Investment) (decimal.Decimal, bool) {
	q, ok := dec(inv.Quantity)
	if !ok || !q.IsPositive() {
		return decimal.Zero, false
	}
	return q, true
}

func rowTotal(inv *models.Investment) (decimal.Decimal, bool) {
	if inv == nil {
		return decimal.Zero, false
	}
	q, ok := quantity(inv)
	if !ok {
		return decimal.Zero, false
	}
	price, ok := dec(inv.CurrentPrice)
	if !ok {
		return decimal.Zero, false
	}
	return q.Mul(price), true
}

func rowCost(inv *models.Investment) (decimal.Decimal, bool) {
	if inv == nil {
		return decimal.Zero, false
	}
	q, ok := quantity(inv)
	if !ok {
		return decimal.Zero, false
	}
	price, ok := dec(inv.PurchasePrice)
	if !ok {
		return decimal.Zero, false
	}
	return q.Mul(price), true
}

func rowPercent(inv *models.Investment) (decimal.Decimal, bool) {
	if inv == nil {
		return decimal.Zero, false
	}
	purchase, ok := dec(inv.PurchasePrice)
	if !ok || purchase.IsZero() {
		return decimal.Zero, false
	}
	current, ok := dec(inv.CurrentPrice)
	if !ok {
		return decimal.Zero, false
	}
	return current.Sub(purchase).Div(purchase).Mul(hundred).Round(percentPlaces), true
}

// RowTotal is quantity * current price. Unavailable when the quantity is
// absent or zero, or the current price is absent. A current price of 0 is a
// real zero total.
func RowTotal(inv *models.Investment) (float64, bool) {
	v, ok := rowTotal(inv)
	return v.InexactFloat64(), ok
}

// RowCost is quantity * purchase price, with the same availability rule.
func RowCost(inv *models.Investment) (float64, bool) {
	v, ok := rowCost(inv)
	return v.InexactFloat64(), ok
}

// RowDifferencePercent is (current - purchase) / purchase * 100 rounded to
// two places. Unavailable when the purchase price is absent or zero or the
// current price is absent.
func RowDifferencePercent(inv *models.Investment) (float64, bool) {
	v, ok := rowPercent(inv)
	return v.InexactFloat64(), ok
}

// RowGainLoss applies the rounded percentage to the cost basis, so the
// absolute figure always agrees with the percentage shown beside it.
func RowGainLoss(inv *models.Investment) (float64, bool) {
	cost, ok := rowCost(inv)
	if !ok {
		return 0, false
	}
	pct, ok := rowPercent(inv)
	if !ok {
		return 0, false
	}
	final := cost.Mul(decimal.NewFromInt(1).Add(pct.Div(hundred)))
	return final.Sub(cost).Round(percentPlaces).InexactFloat64(), true
}

func totalByMarket(h Holdings, market models.Market) decimal.Decimal {
	market = market.Normalize()
	sum := decimal.Zero
	for _, inv := range h.Holdings() {
		if inv == nil || inv.Market.Normalize() != market {
			continue
		}
		if v, ok := rowTotal(inv); ok {
			sum = sum.Add(v)
		}
	}
	return sum
}

// TotalByMarket sums RowTotal over rows quoted on market. Unavailable rows
// contribute zero.
func TotalByMarket(h Holdings, market models.Market) float64 {
	return totalByMarket(h, market).InexactFloat64()
}

// TotalInUSD divides TotalByMarket by the reference rate. Unavailable when
// the rate is not positive.
func TotalInUSD(h Holdings, market models.Market, rate float64) (float64, bool) {
	if rate <= 0 {
		return 0, false
	}
	return totalByMarket(h, market).Div(decimal.NewFromFloat(rate)).InexactFloat64(), true
}

// TotalAtPurchaseRateInUSD sums qty * purchase / rate-at-purchase for rows
// on market that carry all three. Rows without a purchase-time rate are
// skipped. Unavailable when no row qualifies.
func TotalAtPurchaseRateInUSD(h Holdings, market models.Market) (float64, bool) {
	market = market.Normalize()
	sum := decimal.Zero
	found := false
	for _, inv := range h.Holdings() {
		if inv == nil || inv.Market.Normalize() != market {
			continue
		}
		cost, ok := rowCost(inv)
		if !ok {
			continue
		}
		r, ok := dec(inv.ReferenceRateAtPurchase)
		if !ok || !r.IsPositive() {
			continue
		}
		sum = sum.Add(cost.Div(r))
		found = true
	}
	if !found {
		return 0, false
	}
	return sum.InexactFloat64(), true
}

// Position is one (symbol, market) group across every wallet.
type Position struct {
	Symbol      string
	Market      models.Market
	Quantity    float64
	CostBasis   float64
	MarketValue float64
	Rows        int
}

type positionKey struct {
	symbol string
	market models.Market
}

type positionAcc struct {
	pos                  Position
	qty, cost, marketVal decimal.Decimal
}

// ConsolidateBySymbol groups rows by normalized (symbol, market). Groups are
// ordered by first appearance, walking wallets and rows in stored order.
// Absent purchase or current prices count as zero; rows with an empty
// symbol are skipped.
func ConsolidateBySymbol(p *models.Portfolio) []Position {
	var order []positionKey
	groups := make(map[positionKey]*positionAcc)

	for _, inv := range p.Holdings() {
		if inv == nil {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(inv.Symbol))
		if symbol == "" {
			continue
		}
		key := positionKey{symbol: symbol, market: inv.Market.Normalize()}
		acc, ok := groups[key]
		if !ok {
			acc = &positionAcc{pos: Position{Symbol: key.symbol, Market: key.market}}
			groups[key] = acc
			order = append(order, key)
		}
		acc.pos.Rows++

		q, ok := dec(inv.Quantity)
		if !ok {
			continue
		}
		acc.qty = acc.qty.Add(q)
		if price, ok := dec(inv.PurchasePrice); ok {
			acc.cost = acc.cost.Add(q.Mul(price))
		}
		if price, ok := dec(inv.CurrentPrice); ok {
			acc.marketVal = acc.marketVal.Add(q.Mul(price))
		}
	}

	out := make([]Position, 0, len(order))
	for _, key := range order {
		acc := groups[key]
		acc.pos.Quantity = acc.qty.InexactFloat64()
		acc.pos.CostBasis = acc.cost.InexactFloat64()
		acc.pos.MarketValue = acc.marketVal.InexactFloat64()
		out = append(out, acc.pos)
	}
	return out
}
