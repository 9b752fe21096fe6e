package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"

	"github.com/bobmcallan/cartera/internal/models"
	"github.com/bobmcallan/cartera/internal/services/valuation"
)

// unavailable is shown for metrics that cannot be computed.
const unavailable = "-"

// formatMoney renders v in the given ISO currency.
func formatMoney(v float64, currency string) string {
	return money.NewFromFloat(v, currency).Display()
}

func formatOptMoney(v *float64, currency string) string {
	if v == nil {
		return unavailable
	}
	return formatMoney(*v, currency)
}

func formatSignedMoney(v *float64, currency string) string {
	if v == nil {
		return unavailable
	}
	if *v > 0 {
		return "+" + formatMoney(*v, currency)
	}
	return formatMoney(*v, currency)
}

func formatPct(v *float64) string {
	if v == nil {
		return unavailable
	}
	return fmt.Sprintf("%+.2f%%", *v)
}

func formatQty(v *float64) string {
	if v == nil {
		return unavailable
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func displayMarket(m models.Market) string {
	if m == "" {
		return unavailable
	}
	return string(m)
}

func displaySymbol(s string) string {
	if strings.TrimSpace(s) == "" {
		return unavailable
	}
	return s
}

// formatSummary renders the wallets report as markdown.
func formatSummary(s *valuation.Summary) string {
	var sb strings.Builder

	sb.WriteString("# Cartera\n\n")
	if s.ReferenceRate != nil {
		sb.WriteString(fmt.Sprintf("**Reference rate (CCL):** %s\n\n", formatMoney(*s.ReferenceRate, "ARS")))
	} else {
		sb.WriteString("**Reference rate (CCL):** -\n\n")
	}

	if len(s.Wallets) == 0 {
		sb.WriteString("No wallets.\n")
		return sb.String()
	}

	for wi, w := range s.Wallets {
		sb.WriteString(fmt.Sprintf("## %d. %s\n\n", wi, w.Name))
		sb.WriteString("| # | Symbol | Market | Qty | Purchase | Current | Total | Diff | Gain/Loss |\n")
		sb.WriteString("|---|--------|--------|-----|----------|---------|-------|------|-----------|\n")
		for ri, r := range w.Rows {
			cur := r.Market.Currency()
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s | %s | %s | %s |\n",
				ri,
				displaySymbol(r.Symbol),
				displayMarket(r.Market),
				formatQty(r.Quantity),
				formatOptMoney(r.PurchasePrice, cur),
				formatOptMoney(r.CurrentPrice, cur),
				formatOptMoney(r.Total, cur),
				formatPct(r.DifferencePercent),
				formatSignedMoney(r.GainLoss, cur),
			))
		}
		sb.WriteString("\n")
		writeMarketTotals(&sb, w.Markets)
	}

	sb.WriteString("## Totals\n\n")
	writeMarketTotals(&sb, s.Markets)
	sb.WriteString(fmt.Sprintf("**Portfolio in USD:** %s\n", formatOptMoney(s.TotalUSD, "USD")))
	return sb.String()
}

func writeMarketTotals(sb *strings.Builder, totals []valuation.MarketTotal) {
	if len(totals) == 0 {
		return
	}
	sb.WriteString("| Market | Total | USD | USD at purchase |\n")
	sb.WriteString("|--------|-------|-----|-----------------|\n")
	for _, mt := range totals {
		atPurchase := unavailable
		if mt.Market.IsBCBA() {
			atPurchase = formatOptMoney(mt.AtPurchaseUSD, "USD")
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			mt.Market,
			formatMoney(mt.Total, mt.Currency),
			formatOptMoney(mt.USD, "USD"),
			atPurchase,
		))
	}
	sb.WriteString("\n")
}

// formatPositions renders the per-symbol consolidation as markdown.
func formatPositions(positions []valuation.Position) string {
	var sb strings.Builder
	sb.WriteString("# Positions\n\n")
	if len(positions) == 0 {
		sb.WriteString("No positions.\n")
		return sb.String()
	}
	sb.WriteString("| Symbol | Market | Rows | Qty | Cost basis | Market value |\n")
	sb.WriteString("|--------|--------|------|-----|------------|--------------|\n")
	for _, p := range positions {
		cur := p.Market.Currency()
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s | %s |\n",
			p.Symbol,
			displayMarket(p.Market),
			p.Rows,
			strconv.FormatFloat(p.Quantity, 'f', -1, 64),
			formatMoney(p.CostBasis, cur),
			formatMoney(p.MarketValue, cur),
		))
	}
	return sb.String()
}
