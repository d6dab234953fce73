package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"fintrack/internal/report"
)

type dashboardCmd struct{}

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "show income, expenses and net worth" }
func (*dashboardCmd) Usage() string {
	return `fintrack dashboard

  Shows the finance service's dashboard. When the service is unreachable the
  dashboard is computed from the last collections loaded on this machine.
`
}
func (*dashboardCmd) SetFlags(*flag.FlagSet) {}

func (*dashboardCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	res, err := e.app.Dashboard.Summary(ctx)
	if err != nil {
		return e.fail(err)
	}
	if res.Local {
		e.notice("dashboard: computed from cached data (%v)", res.Cause)
	}
	return e.print(report.Dashboard(res))
}

type networthCmd struct{}

func (*networthCmd) Name() string     { return "networth" }
func (*networthCmd) Synopsis() string { return "show net worth with asset and liability breakdowns" }
func (*networthCmd) Usage() string {
	return `fintrack networth
`
}
func (*networthCmd) SetFlags(*flag.FlagSet) {}

func (*networthCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	ws := e.app.Workspace
	if err := e.load(ctx, ws.Assets, ws.Liabilities); err != nil {
		return e.fail(err)
	}
	return e.print(report.NetWorth(ws.Assets.Items(), ws.Liabilities.Items()))
}

type reportCmd struct{}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "print every report in one document" }
func (*reportCmd) Usage() string {
	return `fintrack report

  Prints transactions, assets, liabilities and net worth. Use -plain to get
  markdown suitable for saving to a file.
`
}
func (*reportCmd) SetFlags(*flag.FlagSet) {}

func (*reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	ws := e.app.Workspace
	if err := e.load(ctx, ws.Transactions, ws.Assets, ws.Liabilities); err != nil {
		return e.fail(err)
	}
	return e.print(report.Full(ws))
}
