package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/bobmcallan/cartera/internal/app"
)

var configPath = flag.String("config", "", "Path to the TOML configuration file")

// stdout is where reports are written.
var stdout io.Writer = os.Stdout

// openApp initializes the application or reports why it could not.
func openApp() (*app.App, error) {
	a, err := app.NewApp(*configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return a, nil
}

func register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")
	c.Register(&versionCmd{}, "")

	c.Register(&walletsCmd{}, "report")
	c.Register(&consolidateCmd{}, "report")
	c.Register(&refreshCmd{}, "report")
	c.Register(&watchCmd{}, "report")

	c.Register(&addWalletCmd{}, "wallets")
	c.Register(&renameWalletCmd{}, "wallets")
	c.Register(&removeWalletCmd{}, "wallets")
	c.Register(&resetCmd{}, "wallets")

	c.Register(&addCmd{}, "investments")
	c.Register(&removeCmd{}, "investments")
	c.Register(&moveCmd{}, "investments")
	c.Register(&setCmd{}, "investments")
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
