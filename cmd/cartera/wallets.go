package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/bobmcallan/cartera/internal/app"
	"github.com/bobmcallan/cartera/internal/common"
)

// mutate opens the app, applies fn and saves on success.
func mutate(ctx context.Context, fn func(a *app.App) error) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := fn(a); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	if err := a.PortfolioService.Save(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type versionCmd struct{}

func (*versionCmd) Name() string             { return "version" }
func (*versionCmd) Synopsis() string         { return "print version information" }
func (*versionCmd) Usage() string            { return "version\n" }
func (*versionCmd) SetFlags(_ *flag.FlagSet) {}
func (*versionCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Fprintln(stdout, "cartera", common.GetFullVersion())
	return subcommands.ExitSuccess
}

type walletsCmd struct{}

func (*walletsCmd) Name() string     { return "wallets" }
func (*walletsCmd) Synopsis() string { return "show every wallet with row metrics and totals" }
func (*walletsCmd) Usage() string {
	return `wallets

  Prints each wallet's investments with total, difference and gain/loss,
  then per-market totals and their USD equivalent at the last known
  reference rate. Unavailable values are shown as "-".
`
}
func (*walletsCmd) SetFlags(_ *flag.FlagSet) {}
func (*walletsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	fmt.Fprint(stdout, formatSummary(a.Summary()))
	return subcommands.ExitSuccess
}

type addWalletCmd struct {
	name string
}

func (*addWalletCmd) Name() string     { return "add-wallet" }
func (*addWalletCmd) Synopsis() string { return "create a new wallet" }
func (*addWalletCmd) Usage() string {
	return `add-wallet -name <name>

  Appends a wallet holding one empty investment row.
`
}
func (c *addWalletCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Wallet name (required)")
}
func (c *addWalletCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		fmt.Fprintln(os.Stderr, "Error: -name is required")
		return subcommands.ExitUsageError
	}
	return mutate(ctx, func(a *app.App) error {
		wi, err := a.PortfolioService.AddWallet(c.name)
		if err == nil {
			fmt.Fprintf(stdout, "wallet %d: %s\n", wi, c.name)
		}
		return err
	})
}

type renameWalletCmd struct {
	wallet int
	name   string
}

func (*renameWalletCmd) Name() string     { return "rename-wallet" }
func (*renameWalletCmd) Synopsis() string { return "rename a wallet" }
func (*renameWalletCmd) Usage() string {
	return "rename-wallet -w <index> -name <name>\n"
}
func (c *renameWalletCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.wallet, "w", -1, "Wallet index")
	f.StringVar(&c.name, "name", "", "New wallet name (required)")
}
func (c *renameWalletCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return mutate(ctx, func(a *app.App) error {
		return a.PortfolioService.RenameWallet(c.wallet, c.name)
	})
}

type removeWalletCmd struct {
	wallet int
}

func (*removeWalletCmd) Name() string     { return "remove-wallet" }
func (*removeWalletCmd) Synopsis() string { return "delete a wallet and its investments" }
func (*removeWalletCmd) Usage() string {
	return "remove-wallet -w <index>\n"
}
func (c *removeWalletCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.wallet, "w", -1, "Wallet index")
}
func (c *removeWalletCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return mutate(ctx, func(a *app.App) error {
		return a.PortfolioService.RemoveWallet(c.wallet)
	})
}

type resetCmd struct {
	yes bool
}

func (*resetCmd) Name() string     { return "reset" }
func (*resetCmd) Synopsis() string { return "delete every wallet and the stored snapshot" }
func (*resetCmd) Usage() string {
	return `reset -yes

  Removes the stored portfolio. Requires -yes.
`
}
func (c *resetCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "Confirm the reset")
}
func (c *resetCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.yes {
		fmt.Fprintln(os.Stderr, "Error: reset deletes every wallet; pass -yes to confirm")
		return subcommands.ExitUsageError
	}
	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.Reset(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(stdout, "portfolio reset")
	return subcommands.ExitSuccess
}
