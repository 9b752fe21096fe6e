package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/cartera/internal/models"
)

// RowSummary carries one investment and its row metrics. Nil metrics are
// unavailable.
type RowSummary struct {
	ID                string
	Symbol            string
	Market            models.Market
	Quantity          *float64
	PurchasePrice     *float64
	CurrentPrice      *float64
	Total             *float64
	Cost              *float64
	DifferencePercent *float64
	GainLoss          *float64
}

// MarketTotal is the value held on one market.
// USD is the total in dollars: ARS markets are divided by the reference
// rate, dollar markets are already in USD.
type MarketTotal struct {
	Market        models.Market
	Currency      string
	Total         float64
	USD           *float64
	AtPurchaseUSD *float64
}

// WalletSummary holds the rows and per-market totals of one wallet.
type WalletSummary struct {
	Name    string
	Rows    []RowSummary
	Markets []MarketTotal
}

// Summary is the full valuation report of a portfolio.
type Summary struct {
	Wallets       []WalletSummary
	Markets       []MarketTotal
	ReferenceRate *float64
	TotalUSD      *float64
	Positions     []Position
}

func opt(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

// Summarize values every row, wallet and market of p. rate is only used when
// rateOK is true. Markets are listed in order of first appearance.
func Summarize(p *models.Portfolio, rate float64, rateOK bool) *Summary {
	if !rateOK || rate <= 0 {
		rate, rateOK = 0, false
	}

	s := &Summary{
		Wallets:   make([]WalletSummary, 0, len(p.Wallets)),
		Positions: ConsolidateBySymbol(p),
	}
	if rateOK {
		s.ReferenceRate = opt(rate, true)
	}

	for _, w := range p.Wallets {
		ws := WalletSummary{Name: w.Name, Rows: make([]RowSummary, 0, len(w.Investments))}
		for _, inv := range w.Investments {
			ws.Rows = append(ws.Rows, summarizeRow(inv))
		}
		ws.Markets = marketTotals(w, rate)
		s.Wallets = append(s.Wallets, ws)
	}

	s.Markets = marketTotals(p, rate)
	usd := decimal.Zero
	complete := true
	for _, mt := range s.Markets {
		if mt.USD == nil {
			complete = false
			break
		}
		usd = usd.Add(decimal.NewFromFloat(*mt.USD))
	}
	if complete {
		s.TotalUSD = opt(usd.InexactFloat64(), true)
	}
	return s
}

func summarizeRow(inv *models.Investment) RowSummary {
	r := RowSummary{
		ID:            inv.ID,
		Symbol:        inv.Symbol,
		Market:        inv.Market,
		Quantity:      inv.Quantity,
		PurchasePrice: inv.PurchasePrice,
		CurrentPrice:  inv.CurrentPrice,
	}
	r.Total = opt(RowTotal(inv))
	r.Cost = opt(RowCost(inv))
	r.DifferencePercent = opt(RowDifferencePercent(inv))
	r.GainLoss = opt(RowGainLoss(inv))
	return r
}

// markets lists the normalized non-empty markets of h in first-seen order.
func markets(h Holdings) []models.Market {
	seen := make(map[models.Market]bool)
	var out []models.Market
	for _, inv := range h.Holdings() {
		if inv == nil {
			continue
		}
		m := inv.Market.Normalize()
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// marketTotals values each market of h. A zero rate leaves ARS totals
// without a USD figure.
func marketTotals(h Holdings, rate float64) []MarketTotal {
	ms := markets(h)
	out := make([]MarketTotal, 0, len(ms))
	for _, m := range ms {
		mt := MarketTotal{
			Market:   m,
			Currency: m.Currency(),
			Total:    TotalByMarket(h, m),
		}
		if m.IsBCBA() {
			mt.USD = opt(TotalInUSD(h, m, rate))
			mt.AtPurchaseUSD = opt(TotalAtPurchaseRateInUSD(h, m))
		} else {
			mt.USD = opt(mt.Total, true)
		}
		out = append(out, mt)
	}
	return out
}
