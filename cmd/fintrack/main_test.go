package main

import (
	"bytes"
	"context"
	"flag"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/fakeapi"
)

const testUser = "0b9f3f0e-6a4c-4f7e-9d55-2c7c2f1f9a10"

type harness struct {
	api    *fakeapi.Server
	srv    *httptest.Server
	cfg    *config.Config
	app    *cli.App
	out    bytes.Buffer
	errOut bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{api: fakeapi.New()}
	h.api.Seed(testUser,
		[]core.Transaction{{Type: core.Income, Amount: core.MustAmount("4000"), Date: core.NewDate(2024, 6, 1), Description: "Salary", Location: "Work", Category: "salary"}},
		nil, nil)
	h.srv = httptest.NewServer(h.api)
	t.Cleanup(h.srv.Close)

	dir := t.TempDir()
	h.cfg = config.Defaults()
	h.cfg.APIURL = h.srv.URL
	h.cfg.SessionFile = filepath.Join(dir, "session.json")
	h.cfg.SnapshotDBPath = filepath.Join(dir, "snapshots.db")

	app, err := cli.NewApp(h.cfg, nil)
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))
	t.Cleanup(func() { _ = app.Close() })
	h.app = app
	return h
}

func (h *harness) run(t *testing.T, args ...string) subcommands.ExitStatus {
	t.Helper()
	h.out.Reset()
	h.errOut.Reset()
	top := flag.NewFlagSet("fintrack", flag.ContinueOnError)
	commander := newCommander(top, "fintrack")
	require.NoError(t, top.Parse(args))
	return commander.Execute(context.Background(), &env{
		app:    h.app,
		out:    &h.out,
		errOut: &h.errOut,
		in:     strings.NewReader(""),
		plain:  true,
	})
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	require.Equal(t, subcommands.ExitSuccess, h.run(t, "login", "-user", testUser, "-token", "token"))
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, subcommands.ExitFailure, h.run(t, "whoami"))
	assert.Contains(t, h.errOut.String(), "Not signed in")

	h.login(t)
	assert.Contains(t, h.out.String(), testUser)

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "whoami"))
	assert.Contains(t, h.out.String(), "User:    "+testUser)

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "logout"))
	assert.Equal(t, subcommands.ExitFailure, h.run(t, "tx", "list"))
	assert.Contains(t, h.errOut.String(), "Not signed in")
}

func TestLogin_RequiresEmailOrUser(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, subcommands.ExitUsageError, h.run(t, "login"))
	assert.Equal(t, subcommands.ExitFailure, h.run(t, "login", "-user", "not-a-uuid"))
}

func TestTransactionLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "tx", "add",
		"-date", "2024-06-03", "-description", "Groceries", "-location", "Market",
		"-amount", "82.40", "-category", "food"))
	assert.Contains(t, h.out.String(), "Added transaction")

	txs := h.app.Workspace.Transactions.Items()
	require.Len(t, txs, 2)
	added := txs[1]
	assert.Equal(t, core.Expense, added.Type)

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "tx", "list", "-filter", "expense"))
	assert.Contains(t, h.out.String(), "Showing 1 transactions.")
	assert.Contains(t, h.out.String(), "Groceries")
	assert.NotContains(t, h.out.String(), "Salary")

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "tx", "edit", "-id", added.ID.String(), "-amount", "90"))
	edited, ok := h.app.Workspace.Transactions.Get(added.ID)
	require.True(t, ok)
	assert.True(t, edited.Amount.Equals(core.MustAmount("90")))
	assert.Equal(t, "Groceries", edited.Description)
	assert.Equal(t, "food", edited.Category)

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "tx", "rm", "-id", added.ID.String()))
	assert.Equal(t, 1, h.app.Workspace.Transactions.Len())
}

func TestTransactionAdd_ValidationBlocksSubmission(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	before := h.api.Len()

	assert.Equal(t, subcommands.ExitUsageError, h.run(t, "tx", "add", "-amount", "0", "-category", "food"))
	assert.Contains(t, h.errOut.String(), "description: Description is required")
	assert.Contains(t, h.errOut.String(), "amount: Amount must be greater than 0")
	assert.Equal(t, before, h.api.Len())
}

func TestRecordCommands_UsageErrors(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	assert.Equal(t, subcommands.ExitUsageError, h.run(t, "tx", "list", "-filter", "weekly"))
	assert.Equal(t, subcommands.ExitUsageError, h.run(t, "tx", "edit"))
	assert.Equal(t, subcommands.ExitUsageError, h.run(t, "asset", "rm"))
	assert.Equal(t, subcommands.ExitUsageError, h.run(t, "liability", "archive"))
	assert.Equal(t, subcommands.ExitFailure, h.run(t, "asset", "edit", "-id", "999"))
	assert.Contains(t, h.errOut.String(), "asset 999 not found")
}

func TestAssetsLiabilitiesAndNetWorth(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "asset", "add",
		"-name", "Flat", "-type", "real_estate", "-value", "150000", "-acquired", "2018-09-01"))
	require.Equal(t, subcommands.ExitSuccess, h.run(t, "liability", "add",
		"-description", "Mortgage", "-type", "mortgage", "-amount", "90000", "-due", "2040-01-01"))

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "asset"))
	assert.Contains(t, h.out.String(), "| Real Estate | $150,000.00 |")

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "liability", "list"))
	assert.Contains(t, h.out.String(), "**Total Liabilities:** $90,000.00")

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "networth"))
	assert.Contains(t, h.out.String(), "**$60,000.00**")

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "report"))
	assert.Contains(t, h.out.String(), "# Financial Reports")
}

func TestOfflineFallsBackToCachedData(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "report"))
	h.srv.Close()

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "tx", "list"))
	assert.Contains(t, h.out.String(), "Salary")
	assert.Contains(t, h.errOut.String(), "notice: transactions: showing cached data")

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "dashboard"))
	assert.Contains(t, h.errOut.String(), "notice: dashboard: computed from cached data")
	assert.Contains(t, h.out.String(), "$4,000.00")
}

func TestOffline_NoCacheFails(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.srv.Close()

	assert.Equal(t, subcommands.ExitFailure, h.run(t, "asset", "list"))
	assert.Contains(t, h.errOut.String(), "Error:")
}
