package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/fakeapi"
	"fintrack/internal/remote"
	"fintrack/internal/session"
	"fintrack/internal/store"
)

const testUser = "0b9f3f0e-6a4c-4f7e-9d55-2c7c2f1f9a10"

type fixture struct {
	api *fakeapi.Server
	ws  *store.Workspace
	svc *Service
}

func newFixture(t *testing.T, p session.Provider) *fixture {
	t.Helper()
	api := fakeapi.New()
	api.Seed(testUser,
		[]core.Transaction{
			{Type: core.Income, Amount: core.MustAmount("3000"), Date: core.NewDate(2024, 3, 1), Description: "Salary", Location: "Work", Category: "salary"},
			{Type: core.Expense, Amount: core.MustAmount("120.40"), Date: core.NewDate(2024, 3, 8), Description: "Groceries", Location: "Market", Category: "food"},
		},
		[]core.Asset{{Name: "Savings", Type: core.Cash, Value: core.MustAmount("5000"), AcquiredDate: core.NewDate(2020, 1, 1)}},
		[]core.Liability{{Description: "Car loan", Type: core.Loan, Amount: core.MustAmount("1500"), DueDate: core.NewDate(2026, 1, 1)}},
	)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	if p == nil {
		p = session.Static{UserID: testUser, AccessToken: "token"}
	}
	client := remote.New(srv.URL)
	ws := store.NewWorkspace(client, p)
	return &fixture{api: api, ws: ws, svc: NewService(client, p, ws, nil)}
}

func TestSummary_FromService(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Local)
	assert.Nil(t, res.Cause)
	assert.True(t, res.TotalIncome.Equals(core.MustAmount("3000")))
	assert.True(t, res.NetWorth.Equals(core.MustAmount("3500")))
}

func TestSummary_FallsBackToCachedCollections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.ws.LoadAll(ctx))

	remoteRes, err := f.svc.Summary(ctx)
	require.NoError(t, err)

	f.api.FailNext(http.StatusServiceUnavailable, "maintenance")
	res, err := f.svc.Summary(ctx)
	require.NoError(t, err)

	assert.True(t, res.Local)
	require.Error(t, res.Cause)
	assert.Equal(t, http.StatusServiceUnavailable, remote.StatusCode(res.Cause))
	assert.True(t, res.TotalIncome.Equals(remoteRes.TotalIncome))
	assert.True(t, res.TotalExpenses.Equals(remoteRes.TotalExpenses))
	assert.True(t, res.NetWorth.Equals(remoteRes.NetWorth))
	require.Len(t, res.MonthlyData, len(remoteRes.MonthlyData))
	assert.Equal(t, remoteRes.MonthlyData[0].Month, res.MonthlyData[0].Month)
}

func TestSummary_NoCacheNoFallback(t *testing.T) {
	f := newFixture(t, nil)

	f.api.FailNext(http.StatusBadGateway, "")
	_, err := f.svc.Summary(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrTransport)
}

func TestSummary_UnauthorizedIsNotMasked(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.ws.LoadAll(ctx))

	f.api.FailNext(http.StatusUnauthorized, "Token expired")
	_, err := f.svc.Summary(ctx)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, remote.StatusCode(err))
}

func TestSummary_NotAuthenticated(t *testing.T) {
	f := newFixture(t, session.NewManager(nil, nil, nil))

	_, err := f.svc.Summary(context.Background())
	assert.True(t, errors.Is(err, session.ErrNotAuthenticated))
	assert.Zero(t, f.api.Hits(remote.DashboardPath(testUser)))
}

func TestSummary_CachedCollectionsOfAnotherUser(t *testing.T) {
	f := newFixture(t, nil)
	f.ws.Assets.Seed("7d1e4b7a-1111-4b6a-8f00-9a0b5d3c2e11", []core.Asset{{ID: "1", Value: core.MustAmount("1")}})

	f.api.FailNext(http.StatusServiceUnavailable, "")
	_, err := f.svc.Summary(context.Background())
	assert.ErrorIs(t, err, remote.ErrTransport)
}

func TestSummary_MixedOwnersNoFallback(t *testing.T) {
	f := newFixture(t, nil)
	f.ws.Transactions.Seed(testUser, []core.Transaction{{ID: "1", Type: core.Income, Amount: core.MustAmount("10"), Date: core.NewDate(2024, 3, 1)}})
	f.ws.Assets.Seed("7d1e4b7a-1111-4b6a-8f00-9a0b5d3c2e11", []core.Asset{{ID: "2", Value: core.MustAmount("1")}})

	f.api.FailNext(http.StatusServiceUnavailable, "")
	_, err := f.svc.Summary(context.Background())
	assert.ErrorIs(t, err, remote.ErrTransport)
}
