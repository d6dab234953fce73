package cli

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/fakeapi"
	"fintrack/internal/remote"
	"fintrack/internal/session"
	"fintrack/internal/storage"
	"fintrack/internal/store"
)

const testUser = "0b9f3f0e-6a4c-4f7e-9d55-2c7c2f1f9a10"

type recorder struct {
	mu     sync.Mutex
	events []*amqp.ChangeEvent
}

func (r *recorder) PublishChange(_ context.Context, ev *amqp.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) all() []*amqp.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*amqp.ChangeEvent(nil), r.events...)
}

func newServer(t *testing.T) (*fakeapi.Server, *httptest.Server) {
	t.Helper()
	api := fakeapi.New()
	api.Seed(testUser,
		[]core.Transaction{{Type: core.Income, Amount: core.MustAmount("2500"), Date: core.NewDate(2024, 2, 1), Description: "Salary", Location: "Work", Category: "salary"}},
		[]core.Asset{{Name: "Savings", Type: core.Cash, Value: core.MustAmount("800"), AcquiredDate: core.NewDate(2021, 5, 1)}},
		nil,
	)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv
}

func testConfig(t *testing.T, apiURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.APIURL = apiURL
	cfg.SessionFile = filepath.Join(dir, "session.json")
	cfg.SnapshotDBPath = filepath.Join(dir, "snapshots.db")
	cfg.AMQPURL = ""
	return cfg
}

func startApp(t *testing.T, cfg *config.Config, opts ...AppOption) *App {
	t.Helper()
	app, err := NewApp(cfg, nil, opts...)
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestApp_SnapshotsSurviveRestart(t *testing.T) {
	_, srv := newServer(t)
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	first, err := NewApp(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, first.Sessions.Set(session.Session{UserID: testUser, AccessToken: "token"}))
	require.NoError(t, first.Start(ctx))
	require.NoError(t, first.Load(ctx))
	require.NoError(t, first.Close())

	srv.Close()

	second := startApp(t, cfg)
	sess, err := second.Sessions.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, testUser, sess.UserID)

	assert.Equal(t, store.Ready, second.Workspace.Transactions.Status())
	assert.Equal(t, 1, second.Workspace.Transactions.Len())
	assert.Equal(t, 1, second.Workspace.Assets.Len())

	err = second.Load(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrTransport)
	assert.Equal(t, 1, second.Workspace.Transactions.Len(), "cached items stay visible")
}

func TestApp_PublishesAcknowledgedMutations(t *testing.T) {
	_, srv := newServer(t)
	cfg := testConfig(t, srv.URL)
	cfg.SnapshotDBPath = ""
	ctx := context.Background()

	rec := &recorder{}
	app, err := NewApp(cfg, nil, WithEventPublisher(rec))
	require.NoError(t, err)
	require.NoError(t, app.Sessions.Set(session.Session{UserID: testUser, AccessToken: "token"}))
	require.NoError(t, app.Start(ctx))
	assert.Nil(t, app.Snapshots)

	require.NoError(t, app.Load(ctx))
	created, err := app.Workspace.Assets.Create(ctx, core.Asset{
		Name: "Bike", Type: core.Vehicles, Value: core.MustAmount("450"), AcquiredDate: core.NewDate(2023, 4, 2),
	})
	require.NoError(t, err)
	require.NoError(t, app.Close())

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, store.KindAssets, events[0].Kind)
	assert.Equal(t, string(store.OpCreate), events[0].Op)
	assert.Equal(t, created.ID.String(), events[0].ID)
	assert.Equal(t, testUser, events[0].UserID)

	published, dropped := app.PublishStats()
	assert.Equal(t, int64(1), published)
	assert.Zero(t, dropped)
}

func TestApp_SignOutForgetsUser(t *testing.T) {
	_, srv := newServer(t)
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	app := startApp(t, cfg)
	require.NoError(t, app.Sessions.Set(session.Session{UserID: testUser, AccessToken: "token"}))
	require.NoError(t, app.Load(ctx))
	require.Equal(t, store.Ready, app.Workspace.Assets.Status())

	require.NoError(t, app.SignOut(ctx))

	_, err := app.Sessions.Current(ctx)
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
	assert.Equal(t, store.Uninitialized, app.Workspace.Assets.Status())

	var assets []core.Asset
	_, err = app.Snapshots.Load(ctx, testUser, store.KindAssets, &assets)
	assert.ErrorIs(t, err, storage.ErrNoSnapshot)

	next, err := NewApp(cfg, nil)
	require.NoError(t, err)
	defer next.Close()
	_, err = next.Sessions.Current(ctx)
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestApp_SignOutWithoutSession(t *testing.T) {
	_, srv := newServer(t)
	app := startApp(t, testConfig(t, srv.URL))
	assert.NoError(t, app.SignOut(context.Background()))
}

func TestOpenSnapshots_EmptyPathDisables(t *testing.T) {
	repo, err := OpenSnapshots(nil, "")
	require.NoError(t, err)
	assert.Nil(t, repo)
}
