package main

import (
	"context"
	"flag"
	"fmt"
	"slices"
	"strings"

	"github.com/google/subcommands"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	"fintrack/internal/form"
	"fintrack/internal/report"
)

// action returns the first positional argument, list by default, and parses
// the flags given after it.
func action(f *flag.FlagSet) (string, error) {
	if f.NArg() == 0 {
		return "list", nil
	}
	act := f.Arg(0)
	if err := f.Parse(f.Args()[1:]); err != nil {
		return "", err
	}
	return act, nil
}

func sortedFields(err *form.ValidationError) []string {
	fields := make([]string, 0, len(err.Fields))
	for k := range err.Fields {
		fields = append(fields, k)
	}
	slices.Sort(fields)
	return fields
}

type txCmd struct {
	id     string
	filter string
	in     form.TransactionInput
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list, add, edit or remove transactions" }
func (*txCmd) Usage() string {
	var b strings.Builder
	b.WriteString(`fintrack tx [list] [-filter all|income|expense]
fintrack tx add -date <YYYY-MM-DD> -description <text> -location <text> -amount <n> -category <id> [-type income|expense] [-recurring true]
fintrack tx edit -id <id> [field flags]
fintrack tx rm -id <id>

  Edit only changes the fields given on the command line.

`)
	for _, t := range core.TransactionTypes() {
		fmt.Fprintf(&b, "  %s categories:\n", t)
		for _, c := range core.Categories(t) {
			fmt.Fprintf(&b, "    %-16s %s\n", c.ID, c.Name)
		}
	}
	return b.String()
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Transaction id, for edit and rm.")
	f.StringVar(&c.filter, "filter", string(aggregate.All), "Transactions to list: all, income or expense.")
	f.StringVar(&c.in.Date, "date", "", "Date (YYYY-MM-DD).")
	f.StringVar(&c.in.Description, "description", "", "Description.")
	f.StringVar(&c.in.Location, "location", "", "Location.")
	f.StringVar(&c.in.Amount, "amount", "", "Amount, greater than 0.")
	f.StringVar(&c.in.Type, "type", "", "income or expense (default expense).")
	f.StringVar(&c.in.Category, "category", "", "Category id valid for the type.")
	f.StringVar(&c.in.Recurring, "recurring", "", "true for a recurring transaction.")
}

func (c *txCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	txs := e.app.Workspace.Transactions

	act, err := action(f)
	if err != nil {
		return subcommands.ExitUsageError
	}
	switch act {
	case "list":
		filter := aggregate.Filter(c.filter)
		if !filter.Valid() {
			return e.usage("tx: unknown filter %q", c.filter)
		}
		if err := e.load(ctx, txs); err != nil {
			return e.fail(err)
		}
		return e.print(report.Transactions(txs.Items(), filter))

	case "add":
		t, err := c.in.Parse()
		if err != nil {
			return e.fail(err)
		}
		// Mutate the full collection so the saved snapshot stays complete.
		if err := e.load(ctx, txs); err != nil {
			return e.fail(err)
		}
		created, err := txs.Create(ctx, t)
		if err != nil {
			return e.fail(err)
		}
		fmt.Fprintf(e.out, "Added transaction %s\n", created.ID)

	case "edit":
		if c.id == "" {
			return e.usage("tx edit: -id is required")
		}
		if err := e.load(ctx, txs); err != nil {
			return e.fail(err)
		}
		base, ok := txs.Get(core.ID(c.id))
		if !ok {
			return e.fail(fmt.Errorf("transaction %s not found", c.id))
		}
		t, err := c.in.Over(base).Parse()
		if err != nil {
			return e.fail(err)
		}
		t.ID = base.ID
		if _, err := txs.Update(ctx, t); err != nil {
			return e.fail(err)
		}
		fmt.Fprintf(e.out, "Updated transaction %s\n", t.ID)

	case "rm":
		if c.id == "" {
			return e.usage("tx rm: -id is required")
		}
		if err := e.load(ctx, txs); err != nil {
			return e.fail(err)
		}
		if err := txs.Delete(ctx, core.ID(c.id)); err != nil {
			return e.fail(err)
		}
		fmt.Fprintf(e.out, "Removed transaction %s\n", c.id)

	default:
		return e.usage("tx: unknown action %q", act)
	}
	return subcommands.ExitSuccess
}

type assetCmd struct {
	id string
	in form.AssetInput
}

func (*assetCmd) Name() string     { return "asset" }
func (*assetCmd) Synopsis() string { return "list, add, edit or remove assets" }
func (*assetCmd) Usage() string {
	return `fintrack asset [list]
fintrack asset add -name <text> -value <n> -acquired <YYYY-MM-DD> [-type cash|real_estate|vehicles|investments|other]
fintrack asset edit -id <id> [field flags]
fintrack asset rm -id <id>
`
}

func (c *assetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Asset id, for edit and rm.")
	f.StringVar(&c.in.Name, "name", "", "Asset name.")
	f.StringVar(&c.in.Type, "type", "", "Asset type (default cash).")
	f.StringVar(&c.in.Value, "value", "", "Value, greater than 0.")
	f.StringVar(&c.in.AcquiredDate, "acquired", "", "Acquisition date (YYYY-MM-DD).")
}

func (c *assetCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	assets := e.app.Workspace.Assets

	act, err := action(f)
	if err != nil {
		return subcommands.ExitUsageError
	}
	switch act {
	case "list":
		if err := e.load(ctx, assets); err != nil {
			return e.fail(err)
		}
		return e.print(report.Assets(assets.Items()))

	case "add":
		a, err := c.in.Parse()
		if err != nil {
			return e.fail(err)
		}
		if err := e.load(ctx, assets); err != nil {
			return e.fail(err)
		}
		created, err := assets.Create(ctx, a)
		if err != nil {
			return e.fail(err)
		}
		fmt.Fprintf(e.out, "Added asset %s\n", created.ID)

	case "edit":
		if c.id == "" {
			return e.usage("asset edit: -id is required")
		}
		if err := e.load(ctx, assets); err != nil {
			return e.fail(err)
		}
		base, ok := assets.Get(core.ID(c.id))
		if !ok {
			return e.fail(fmt.Errorf("asset %s not found", c.id))
		}
		a, err := c.in.Over(base).Parse()
		if err != nil {
			return e.fail(err)
		}
		a.ID = base.ID
		if _, err := assets.Update(ctx, a); err != nil {
			return e.fail(err)
		}
		fmt.Fprintf(e.out, "Updated asset %s\n", a.ID)

	case "rm":
		if c.id == "" {
			return e.usage("asset rm: -id is required")
		}
		if err := e.load(ctx, assets); err != nil {
			return e.fail(err)
		}
		if err := assets.Delete(ctx, core.ID(c.id)); err != nil {
			return e.fail(err)
		}
		fmt.Fprintf(e.out, "Removed asset %s\n", c.id)

	default:
		return e.usage("asset: unknown action %q", act)
	}
	return subcommands.ExitSuccess
}

type liabilityCmd struct {
	id string
	in form.LiabilityInput
}

func (*liabilityCmd) Name() string     { return "liability" }
func (*liabilityCmd) Synopsis() string { return "list, add, edit or remove liabilities" }
func (*liabilityCmd) Usage() string {
	return `fintrack liability [list]
fintrack liability add -description <text> -amount <n> -due <YYYY-MM-DD> [-type credit_card|loan|mortgage|other]
fintrack liability edit -id <id> [field flags]
fintrack liability rm -id <id>
`
}

func (c *liabilityCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Liability id, for edit and rm.")
	f.StringVar(&c.in.Description, "description", "", "Description.")
	f.StringVar(&c.in.Type, "type", "", "Liability type (default credit_card).")
	f.StringVar(&c.in.Amount, "amount", "", "Amount owed, greater than 0.")
	f.StringVar(&c.in.DueDate, "due", "", "Due date (YYYY-MM-DD).")
}

func (c *liabilityCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	liabilities := e.app.Workspace.Liabilities

	act, err := action(f)
	if err != nil {
		return subcommands.ExitUsageError
	}
	switch act {
	case "list":
		if err := e.load(ctx, liabilities); err != nil {
			return e.fail(err)
		}
		return e.print(report.Liabilities(liabilities.Items()))

	case "add":
		l, err := c.in.Parse()
		if err != nil {
			return e.fail(err)
		}
		if err := e.load(ctx, liabilities); err != nil {
			return e.fail(err)
		}
		created, err := liabilities.Create(ctx, l)
		if err != nil {
			return e.fail(err)
		}
		fmt.Fprintf(e.out, "Added liability %s\n", created.ID)

	case "edit":
		if c.id == "" {
			return e.usage("liability edit: -id is required")
		}
		if err := e.load(ctx, liabilities); err != nil {
			return e.fail(err)
		}
		base, ok := liabilities.Get(core.ID(c.id))
		if !ok {
			return e.fail(fmt.Errorf("liability %s not found", c.id))
		}
		l, err := c.in.Over(base).Parse()
		if err != nil {
			return e.fail(err)
		}
		l.ID = base.ID
		if _, err := liabilities.Update(ctx, l); err != nil {
			return e.fail(err)
		}
		fmt.Fprintf(e.out, "Updated liability %s\n", l.ID)

	case "rm":
		if c.id == "" {
			return e.usage("liability rm: -id is required")
		}
		if err := e.load(ctx, liabilities); err != nil {
			return e.fail(err)
		}
		if err := liabilities.Delete(ctx, core.ID(c.id)); err != nil {
			return e.fail(err)
		}
		fmt.Fprintf(e.out, "Removed liability %s\n", c.id)

	default:
		return e.usage("liability: unknown action %q", act)
	}
	return subcommands.ExitSuccess
}
