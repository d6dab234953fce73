// Command fintrack manages transactions, assets and liabilities held by the
// finance service and renders reports in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"fintrack/internal/cli"
)

var (
	plain   = flag.Bool("plain", false, "Print raw markdown instead of styled terminal output.")
	verbose = flag.Bool("v", false, "Log at the configured LOG_LEVEL instead of warn.")
)

func newCommander(top *flag.FlagSet, name string) *subcommands.Commander {
	c := subcommands.NewCommander(top, name)
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&loginCmd{}, "session")
	c.Register(&logoutCmd{}, "session")
	c.Register(&whoamiCmd{}, "session")

	c.Register(&txCmd{}, "records")
	c.Register(&assetCmd{}, "records")
	c.Register(&liabilityCmd{}, "records")

	c.Register(&dashboardCmd{}, "reports")
	c.Register(&networthCmd{}, "reports")
	c.Register(&reportCmd{}, "reports")
	return c
}

func main() {
	commander := newCommander(flag.CommandLine, path.Base(os.Args[0]))
	flag.Parse()
	os.Exit(int(run(commander)))
}

func run(commander *subcommands.Commander) subcommands.ExitStatus {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	level := "warn"
	if *verbose {
		level = cfg.LogLevel
	}
	logger := cli.SetupLogger(os.Stderr, level, cfg.LogFormat)

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	return commander.Execute(ctx, &env{app: app, out: os.Stdout, errOut: os.Stderr, in: os.Stdin, plain: *plain})
}
