package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/subcommands"

	"github.com/bobmcallan/cartera/internal/common"
	"github.com/bobmcallan/cartera/internal/services/valuation"
)

type consolidateCmd struct{}

func (*consolidateCmd) Name() string     { return "consolidate" }
func (*consolidateCmd) Synopsis() string { return "group holdings by symbol across wallets" }
func (*consolidateCmd) Usage() string {
	return `consolidate

  Sums quantity, cost basis and market value per (symbol, market) across
  every wallet, in order of first appearance.
`
}
func (*consolidateCmd) SetFlags(_ *flag.FlagSet) {}
func (*consolidateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	fmt.Fprint(stdout, formatPositions(valuation.ConsolidateBySymbol(a.PortfolioService.Snapshot())))
	return subcommands.ExitSuccess
}

type refreshCmd struct {
	timeout time.Duration
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "fetch the reference rate and every price once, then save" }
func (*refreshCmd) Usage() string {
	return `refresh [-timeout <duration>]

  Fetches the reference rate and the current price of every investment
  that has a symbol and a market, saves, and prints the wallets report.
  Failed quotes keep their previous price.
`
}
func (c *refreshCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.timeout, "timeout", time.Minute, "Overall timeout")
}
func (c *refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	updated, skipped := a.RefreshAll(ctx)
	a.Logger.Info().Int("updated", updated).Int("skipped", skipped).Msg("Refresh complete")

	if err := a.PortfolioService.Save(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	fmt.Fprint(stdout, formatSummary(a.Summary()))
	return subcommands.ExitSuccess
}

type watchCmd struct {
	save      bool
	autoPrice string
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "keep prices fresh until interrupted" }
func (*watchCmd) Usage() string {
	return `watch [-save] [-auto-price true|false]

  Runs the refresh scheduler and the reference-rate ticker, logging the
  portfolio value every poll interval. -save persists the portfolio on exit.
  -auto-price overrides refresh.auto_price; when false, fetched prices are
  discarded.
`
}
func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.save, "save", false, "Save the portfolio on exit")
	f.StringVar(&c.autoPrice, "auto-price", "", "Override refresh.auto_price (true or false)")
}
func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var autoPrice *bool
	if c.autoPrice != "" {
		b, err := strconv.ParseBool(c.autoPrice)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -auto-price %q\n", c.autoPrice)
			return subcommands.ExitUsageError
		}
		autoPrice = &b
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if autoPrice != nil {
		a.Config.Refresh.AutoPrice = *autoPrice
		a.Scheduler.SetAutoPrice(*autoPrice)
	}
	common.PrintBanner(os.Stderr, a.Config, a.Logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.StartRefresh(ctx)

	ticker := time.NewTicker(a.Config.Refresh.GetPollInterval())
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			logTotals(a.Logger, a.Summary())
		}
	}

	a.Logger.Info().Msg("Shutdown signal received")
	a.Scheduler.Stop()

	if c.save {
		if err := a.PortfolioService.Save(context.Background()); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to save portfolio")
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}

func logTotals(logger *common.Logger, s *valuation.Summary) {
	ev := logger.Info()
	for _, mt := range s.Markets {
		ev = ev.Float64(string(mt.Market), mt.Total)
	}
	if s.TotalUSD != nil {
		ev = ev.Float64("usd", *s.TotalUSD)
	}
	ev.Msg("Portfolio value")
}
