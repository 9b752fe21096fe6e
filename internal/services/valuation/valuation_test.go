package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/cartera/internal/models"
)

func row(symbol string, market models.Market, qty, purchase, current *float64) *models.Investment {
	return &models.Investment{Symbol: symbol, Market: market, Quantity: qty, PurchasePrice: purchase, CurrentPrice: current}
}

var f = models.Float

func TestRowTotal(t *testing.T) {
	tests := []struct {
		name string
		inv  *models.Investment
		want float64
		ok   bool
	}{
		{"qty times price", row("GGAL", "BCBA", f(10), nil, f(500)), 5000, true},
		{"decimal exact", row("X", "NYSE", f(3), nil, f(110.1)), 330.3, true},
		{"zero price is a real zero", row("X", "NYSE", f(3), nil, f(0)), 0, true},
		{"zero quantity", row("X", "NYSE", f(0), nil, f(10)), 0, false},
		{"absent quantity", row("X", "NYSE", nil, nil, f(10)), 0, false},
		{"absent price", row("X", "NYSE", f(1), nil, nil), 0, false},
		{"nil row", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RowTotal(tt.inv)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRowCost(t *testing.T) {
	got, ok := RowCost(row("X", "NYSE", f(2), f(100), nil))
	assert.True(t, ok)
	assert.Equal(t, 200.0, got)

	_, ok = RowCost(row("X", "NYSE", f(2), nil, f(100)))
	assert.False(t, ok)
}

func TestRowDifferencePercent(t *testing.T) {
	got, ok := RowDifferencePercent(row("X", "NYSE", f(1), f(400), f(500)))
	require.True(t, ok)
	assert.Equal(t, 25.0, got)

	got, ok = RowDifferencePercent(row("X", "NYSE", f(1), f(3), f(4)))
	require.True(t, ok)
	assert.Equal(t, 33.33, got)

	got, ok = RowDifferencePercent(row("X", "NYSE", f(1), f(200), f(150)))
	require.True(t, ok)
	assert.Equal(t, -25.0, got)

	for name, inv := range map[string]*models.Investment{
		"zero purchase":   row("X", "NYSE", f(1), f(0), f(10)),
		"absent purchase": row("X", "NYSE", f(1), nil, f(10)),
		"absent current":  row("X", "NYSE", f(1), f(10), nil),
	} {
		got, ok := RowDifferencePercent(inv)
		assert.False(t, ok, name)
		assert.False(t, math.IsNaN(got) || math.IsInf(got, 0), name)
	}
}

func TestRowGainLoss_UsesRoundedPercent(t *testing.T) {
	// 3 @ 3 -> 4: percent rounds to 33.33, gain is 9 * 0.3333 = 2.9997 -> 3.00
	got, ok := RowGainLoss(row("X", "NYSE", f(3), f(3), f(4)))
	require.True(t, ok)
	assert.Equal(t, 3.0, got)

	// 7 @ 3 -> 4: cost 21, final 21 * 1.3333 = 27.9993, gain 6.9993 -> 7.00
	got, ok = RowGainLoss(row("X", "NYSE", f(7), f(3), f(4)))
	require.True(t, ok)
	assert.Equal(t, 7.0, got)

	got, ok = RowGainLoss(row("X", "NYSE", f(10), f(400), f(500)))
	require.True(t, ok)
	assert.Equal(t, 1000.0, got)

	_, ok = RowGainLoss(row("X", "NYSE", f(10), f(0), f(500)))
	assert.False(t, ok)
}

func testPortfolio() *models.Portfolio {
	return &models.Portfolio{Wallets: []*models.Wallet{
		{Name: "Local", Investments: []*models.Investment{
			row("GGAL", "BCBA", f(10), f(400), f(500)),
			row("PAMP", "bcba", nil, nil, f(3000)),
		}},
		{Name: "Exterior", Investments: []*models.Investment{
			row("YPF", "NYSE", f(1), nil, f(20)),
		}},
	}}
}

func TestTotalByMarket(t *testing.T) {
	p := testPortfolio()
	assert.Equal(t, 5000.0, TotalByMarket(p, "BCBA"))
	assert.Equal(t, 5000.0, TotalByMarket(p, "bcba"))
	assert.Equal(t, 20.0, TotalByMarket(p, "NYSE"))
	assert.Equal(t, 0.0, TotalByMarket(p, "NASDAQ"))
	assert.Equal(t, 20.0, TotalByMarket(p.Wallets[1], "NYSE"))
	assert.Equal(t, 0.0, TotalByMarket(p.Wallets[1], "BCBA"))
}

func TestTotalInUSD(t *testing.T) {
	p := testPortfolio()
	got, ok := TotalInUSD(p, "BCBA", 1250)
	require.True(t, ok)
	assert.Equal(t, 4.0, got)

	_, ok = TotalInUSD(p, "BCBA", 0)
	assert.False(t, ok)
	_, ok = TotalInUSD(p, "BCBA", -5)
	assert.False(t, ok)
}

func TestTotalAtPurchaseRateInUSD(t *testing.T) {
	p := &models.Portfolio{Wallets: []*models.Wallet{{Name: "W", Investments: []*models.Investment{
		{Symbol: "GGAL", Market: "BCBA", Quantity: f(10), PurchasePrice: f(400), ReferenceRateAtPurchase: f(800)},
		{Symbol: "PAMP", Market: "BCBA", Quantity: f(2), PurchasePrice: f(1000)},
		{Symbol: "YPF", Market: "NYSE", Quantity: f(1), PurchasePrice: f(20), ReferenceRateAtPurchase: f(800)},
	}}}}

	got, ok := TotalAtPurchaseRateInUSD(p, "BCBA")
	require.True(t, ok)
	assert.Equal(t, 5.0, got, "rows without a purchase-time rate are excluded")

	_, ok = TotalAtPurchaseRateInUSD(p, "NASDAQ")
	assert.False(t, ok)

	_, ok = TotalAtPurchaseRateInUSD(&models.Portfolio{Wallets: []*models.Wallet{{Investments: []*models.Investment{
		{Symbol: "PAMP", Market: "BCBA", Quantity: f(2), PurchasePrice: f(1000)},
	}}}}, "BCBA")
	assert.False(t, ok)
}

func TestConsolidateBySymbol(t *testing.T) {
	p := &models.Portfolio{Wallets: []*models.Wallet{
		{Name: "A", Investments: []*models.Investment{
			row("AAPL", "NASDAQ", f(2), f(90), f(100)),
			row("GGAL", "BCBA", f(1), nil, f(500)),
		}},
		{Name: "B", Investments: []*models.Investment{
			row("aapl ", "nasdaq", f(3), nil, f(110)),
			row("", "NYSE", f(1), f(1), f(1)),
			row("AAPL", "BCBA", f(1), f(10), f(12)),
		}},
	}}

	got := ConsolidateBySymbol(p)
	require.Len(t, got, 3)

	aapl := got[0]
	assert.Equal(t, "AAPL", aapl.Symbol)
	assert.Equal(t, models.Market("NASDAQ"), aapl.Market)
	assert.Equal(t, 5.0, aapl.Quantity)
	assert.Equal(t, 530.0, aapl.MarketValue)
	assert.Equal(t, 180.0, aapl.CostBasis, "absent purchase price counts as zero")
	assert.Equal(t, 2, aapl.Rows)

	assert.Equal(t, "GGAL", got[1].Symbol)
	assert.Equal(t, models.MarketBCBA, got[2].Market, "same symbol on another market is its own group")

	assert.Equal(t, got, ConsolidateBySymbol(p), "deterministic")
}

func TestConsolidateBySymbol_Empty(t *testing.T) {
	assert.Empty(t, ConsolidateBySymbol(models.NewPortfolio()))
}
