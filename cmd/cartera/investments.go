package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/bobmcallan/cartera/internal/app"
	"github.com/bobmcallan/cartera/internal/models"
)

type addCmd struct {
	wallet int
	symbol string
	market string
	qty    string
	price  string
	date   string
	rate   string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add an investment to a wallet" }
func (*addCmd) Usage() string {
	return `add -w <index> -symbol <symbol> -market <market> [-qty <n> -price <n> -date <YYYY-MM-DD> -rate <n>]

  Appends an investment row. Markets are free text; BCBA rows are quoted in
  ARS, every other market in USD. -rate is the reference rate on the
  purchase date.
`
}
func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.wallet, "w", -1, "Wallet index")
	f.StringVar(&c.symbol, "symbol", "", "Ticker symbol")
	f.StringVar(&c.market, "market", "", "Market, e.g. BCBA, NASDAQ, NYSE")
	f.StringVar(&c.qty, "qty", "", "Quantity held")
	f.StringVar(&c.price, "price", "", "Purchase price per unit")
	f.StringVar(&c.date, "date", "", "Purchase date (YYYY-MM-DD)")
	f.StringVar(&c.rate, "rate", "", "Reference rate at purchase")
}

// fields lists the edits in the order they are applied. Market goes before
// purchase price since a market edit clears it.
func (c *addCmd) fields() [][2]string {
	return [][2]string{
		{string(models.FieldSymbol), c.symbol},
		{string(models.FieldMarket), c.market},
		{string(models.FieldQuantity), c.qty},
		{string(models.FieldPurchasePrice), c.price},
		{string(models.FieldPurchaseDate), c.date},
		{string(models.FieldReferenceRate), c.rate},
	}
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" || c.market == "" {
		fmt.Fprintln(os.Stderr, "Error: -symbol and -market are required")
		return subcommands.ExitUsageError
	}
	return mutate(ctx, func(a *app.App) error {
		svc := a.PortfolioService
		ii, err := svc.AddInvestment(c.wallet, nil)
		if err != nil {
			return err
		}
		for _, fv := range c.fields() {
			if fv[1] == "" {
				continue
			}
			if err := svc.SetField(c.wallet, ii, models.Field(fv[0]), fv[1]); err != nil {
				return err
			}
		}
		fmt.Fprintf(stdout, "investment %d added to wallet %d\n", ii, c.wallet)
		return nil
	})
}

type removeCmd struct {
	wallet, index int
}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "remove an investment" }
func (*removeCmd) Usage() string    { return "remove -w <wallet> -i <index>\n" }
func (c *removeCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.wallet, "w", -1, "Wallet index")
	f.IntVar(&c.index, "i", -1, "Investment index")
}
func (c *removeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return mutate(ctx, func(a *app.App) error {
		return a.PortfolioService.RemoveInvestment(c.wallet, c.index)
	})
}

type moveCmd struct {
	fromWallet, fromIndex int
	toWallet, toIndex     int
}

func (*moveCmd) Name() string     { return "move" }
func (*moveCmd) Synopsis() string { return "move an investment within or between wallets" }
func (*moveCmd) Usage() string {
	return `move -from-w <wallet> -from-i <index> -to-w <wallet> -to-i <index>

  Within one wallet the row is reordered. Between wallets the row is
  transferred: it leaves the source and a copy is inserted in the target.
  -to-i may equal the target length to append.
`
}
func (c *moveCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.fromWallet, "from-w", -1, "Source wallet index")
	f.IntVar(&c.fromIndex, "from-i", -1, "Source investment index")
	f.IntVar(&c.toWallet, "to-w", -1, "Target wallet index")
	f.IntVar(&c.toIndex, "to-i", -1, "Target position")
}
func (c *moveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return mutate(ctx, func(a *app.App) error {
		return a.PortfolioService.MoveInvestment(c.fromWallet, c.fromIndex, c.toWallet, c.toIndex)
	})
}

type setCmd struct {
	wallet, index int
	field, value  string
}

func (*setCmd) Name() string     { return "set" }
func (*setCmd) Synopsis() string { return "edit one field of an investment" }
func (*setCmd) Usage() string {
	return `set -w <wallet> -i <index> -field <field> -value <value>

  Fields: symbol, market, quantity, purchase_price, purchase_date,
  reference_rate. An empty value clears optional fields. Changing the
  market clears the purchase price.
`
}
func (c *setCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.wallet, "w", -1, "Wallet index")
	f.IntVar(&c.index, "i", -1, "Investment index")
	f.StringVar(&c.field, "field", "", "Field name")
	f.StringVar(&c.value, "value", "", "New value")
}
func (c *setCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	field, ok := models.ParseField(c.field)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown field %q\n", c.field)
		return subcommands.ExitUsageError
	}
	return mutate(ctx, func(a *app.App) error {
		return a.PortfolioService.SetField(c.wallet, c.index, field, c.value)
	})
}
