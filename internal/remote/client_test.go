package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/fakeapi"
	"fintrack/internal/log"
	"fintrack/internal/session"
)

const testUser = "0b9f3f0e-6a4c-4f7e-9d55-2c7c2f1f9a10"

func testSession() session.Session {
	return session.Session{UserID: testUser, AccessToken: "provider-token"}
}

func TestClient_SendHeaders(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	raw, err := c.Send(context.Background(), testSession(), http.MethodPost, "/api/transactions", map[string]int{"amount": 5})
	require.NoError(t, err)

	assert.JSONEq(t, `{"ok": true}`, string(raw))
	require.NotNil(t, got)
	assert.Equal(t, "/api/transactions", got.URL.Path)
	assert.Equal(t, "Bearer provider-token", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.NotEmpty(t, got.Header.Get(log.RequestIDHeader))
}

func TestClient_SendWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("Content-Type"))
	}))
	defer srv.Close()

	raw, err := New(srv.URL).Send(context.Background(), session.Session{UserID: testUser}, http.MethodGet, "/x", nil)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestClient_EmptyAndNullBodies(t *testing.T) {
	for _, body := range []string{"", "  ", "null", "null\n"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		raw, err := New(srv.URL).Send(context.Background(), testSession(), http.MethodPut, "/x", nil)
		srv.Close()

		require.NoError(t, err, "body %q", body)
		assert.Nil(t, raw, "body %q", body)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"detail string", http.StatusBadRequest, `{"detail": "Invalid user ID format"}`, "Invalid user ID format"},
		{"detail list", http.StatusUnprocessableEntity, `{"detail": [{"loc": ["body", "amount"]}]}`, `[{"loc": ["body", "amount"]}]`},
		{"plain text", http.StatusBadGateway, "  upstream down \n", "upstream down"},
		{"no body", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL).Send(context.Background(), testSession(), http.MethodGet, "/api/x", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTransport)

			var te *TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.status, te.Status)
			assert.Equal(t, tt.wantDetail, te.Detail)
			assert.Equal(t, http.MethodGet, te.Method)
			assert.Equal(t, "/api/x", te.Path)
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Send(context.Background(), testSession(), http.MethodGet, "/api/x", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, 0, StatusCode(err))
	assert.Contains(t, err.Error(), "service unreachable")
	assert.False(t, IsNotFound(err))
}

func TestClient_Dashboard(t *testing.T) {
	api := fakeapi.New()
	api.Seed(testUser,
		[]core.Transaction{
			{Type: core.Income, Amount: core.MustAmount("100"), Date: core.NewDate(2024, 1, 15), Category: "salary"},
			{Type: core.Expense, Amount: core.MustAmount("40"), Date: core.NewDate(2024, 2, 3), Category: "food"},
		},
		[]core.Asset{{Type: core.Cash, Value: core.MustAmount("1000")}},
		[]core.Liability{{Type: core.Loan, Amount: core.MustAmount("250")}},
	)
	srv := httptest.NewServer(api)
	defer srv.Close()

	summary, err := New(srv.URL).Dashboard(context.Background(), testSession())
	require.NoError(t, err)

	assert.True(t, summary.TotalIncome.Equals(core.MustAmount("100")))
	assert.True(t, summary.TotalExpenses.Equals(core.MustAmount("40")))
	assert.True(t, summary.NetWorth.Equals(core.MustAmount("750")))
	require.Len(t, summary.MonthlyData, 2)
	assert.Equal(t, "Feb 2024", summary.MonthlyData[0].Month)
	require.Len(t, summary.ExpenseCategories, 1)
	assert.Equal(t, "food", summary.ExpenseCategories[0].Category)
}

func TestClient_GetDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalIncome": "lots"`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Dashboard(context.Background(), testSession())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, http.StatusOK, StatusCode(err))
}

func TestExchangeTokens(t *testing.T) {
	api := fakeapi.New(fakeapi.RequireAuth())
	srv := httptest.NewServer(api)
	defer srv.Close()

	tokens := NewExchangeTokens(srv.URL, nil, time.Minute, nil)
	c := New(srv.URL, WithTokenSource(tokens))
	ctx := context.Background()

	_, err := c.Send(ctx, testSession(), http.MethodGet, TransactionsPath(testUser), nil)
	require.NoError(t, err)
	_, err = c.Send(ctx, testSession(), http.MethodGet, AssetsPath(testUser), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, api.Hits(UserPath(testUser)), "token must be cached")
	assert.Equal(t, 1, tokens.Cache().Size())

	tokens.Invalidate(testUser)
	assert.Equal(t, 0, tokens.Cache().Size())
	_, err = c.Send(ctx, testSession(), http.MethodGet, LiabilitiesPath(testUser), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, api.Hits(UserPath(testUser)))
}

func TestExchangeTokens_FallsBackToSessionToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tokens := NewExchangeTokens(srv.URL, nil, time.Minute, nil)
	tok, err := tokens.Token(context.Background(), testSession())
	require.NoError(t, err)
	assert.Equal(t, "provider-token", tok)
	assert.Equal(t, 0, tokens.Cache().Size(), "fallback tokens are not cached")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tokens.Token(ctx, testSession())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestExchangeTokens_UnauthorizedInvalidates(t *testing.T) {
	api := fakeapi.New(fakeapi.RequireAuth())
	srv := httptest.NewServer(api)
	defer srv.Close()

	tokens := NewExchangeTokens(srv.URL, nil, time.Minute, nil)
	c := New(srv.URL, WithTokenSource(tokens))
	ctx := context.Background()

	_, err := tokens.Token(ctx, testSession())
	require.NoError(t, err)
	require.Equal(t, 1, tokens.Cache().Size())

	api.FailNext(http.StatusUnauthorized, "Token expired")
	_, err = c.Send(ctx, testSession(), http.MethodGet, TransactionsPath(testUser), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Equal(t, 0, tokens.Cache().Size())
}
