package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/config"
	"fintrack/internal/dashboard"
	"fintrack/internal/log"
	"fintrack/internal/remote"
	"fintrack/internal/session"
	"fintrack/internal/storage"
	"fintrack/internal/store"
)

const drainTimeout = 10 * time.Second

// App holds the long-lived components of a fintrack process.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Sessions  *session.Manager
	Tokens    *remote.ExchangeTokens
	Client    *remote.Client
	Workspace *store.Workspace
	Dashboard *dashboard.Service
	Snapshots *storage.SnapshotRepository

	auth      session.Authenticator
	events    amqp.EventPublisher
	broker    *amqp.Client
	publisher *amqp.Publisher
	caches    *cache.Manager

	stops      []func()
	cancel     context.CancelFunc
	publishing sync.WaitGroup
	closeOnce  sync.Once
}

type AppOption func(*App)

// WithAuthenticator replaces the password authenticator built from AuthURL.
func WithAuthenticator(a session.Authenticator) AppOption {
	return func(app *App) { app.auth = a }
}

// WithEventPublisher publishes change events to p instead of dialing AMQPURL.
func WithEventPublisher(p amqp.EventPublisher) AppOption {
	return func(app *App) { app.events = p }
}

// NewApp builds the components described by cfg. The persisted session, if
// any, is restored; nothing touches the network until Start or Load.
func NewApp(cfg *config.Config, logger *log.Logger, opts ...AppOption) (*App, error) {
	if logger == nil {
		logger = log.Discard()
	}
	app := &App{Config: cfg, Logger: logger}
	for _, opt := range opts {
		opt(app)
	}

	hc := remote.NewHTTPClient(cfg.HTTPTimeout)
	if app.auth == nil && cfg.AuthURL != "" {
		app.auth = session.NewPasswordAuthenticator(cfg.AuthURL, cfg.AuthAnonKey, hc)
	}
	var persist session.Persister
	if cfg.SessionFile != "" {
		persist = session.NewFileStore(cfg.SessionFile)
	}
	app.Sessions = session.NewManager(app.auth, persist, logger)
	if err := app.Sessions.Restore(); err != nil {
		logger.Warn("Ignoring stored session", log.FieldError, err)
	}

	app.Tokens = remote.NewExchangeTokens(cfg.APIURL, hc, cfg.TokenTTL, logger)
	app.Client = remote.New(cfg.APIURL,
		remote.WithHTTPClient(hc),
		remote.WithTokenSource(app.Tokens),
		remote.WithLogger(logger))
	app.Workspace = store.NewWorkspace(app.Client, app.Sessions, store.WithLogger(logger))
	app.Dashboard = dashboard.NewService(app.Client, app.Sessions, app.Workspace, logger)

	snapshots, err := OpenSnapshots(logger, cfg.SnapshotDBPath)
	if err != nil {
		return nil, err
	}
	app.Snapshots = snapshots

	app.caches = cache.NewManager(logger)
	app.caches.Register(app.Tokens.Cache())
	return app, nil
}

// Start restores the signed-in user's snapshots and wires the observers:
// workspace reset on session changes, snapshot saving and change events.
func (a *App) Start(ctx context.Context) error {
	a.stops = append(a.stops, a.Workspace.Follow(a.Sessions))

	if a.Snapshots != nil {
		if sess, err := a.Sessions.Current(ctx); err == nil {
			if err := storage.Restore(ctx, a.Snapshots, a.Workspace, sess.UserID); err != nil {
				a.Logger.WarnContext(ctx, "Failed to restore snapshots",
					log.FieldUserID, sess.UserID,
					log.FieldError, err)
			}
		}
		a.stops = append(a.stops, storage.Keep(ctx, a.Snapshots, a.Workspace, a.Logger))
	}

	if err := a.startPublisher(); err != nil {
		// Change events are best effort; the stores work without them.
		a.Logger.WarnContext(ctx, "Change events disabled",
			log.FieldOperation, log.OpStartup,
			log.FieldError, err)
	}

	if a.Config.TokenTTL > 0 {
		a.caches.StartCleanup(a.Config.TokenTTL)
	}
	return nil
}

func (a *App) startPublisher() error {
	pub := a.events
	if pub == nil {
		if a.Config.AMQPURL == "" {
			return nil
		}
		broker, err := amqp.NewClient(a.Config.AMQPURL, a.Config.AMQPExchange, a.Config.AMQPQueue, a.Logger)
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		a.broker = broker
		pub = broker
	}

	a.publisher = amqp.NewPublisher(pub, 0, a.Logger)
	a.stops = append(a.stops, a.Workspace.Subscribe(a.publisher.Observe))

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.publishing.Add(1)
	go func() {
		defer a.publishing.Done()
		_ = a.publisher.Run(ctx)
	}()
	return nil
}

// Load refreshes every collection from the finance service.
func (a *App) Load(ctx context.Context) error {
	return a.Workspace.LoadAll(ctx)
}

// SignOut ends the session and forgets everything cached for the user.
func (a *App) SignOut(ctx context.Context) error {
	sess, err := a.Sessions.Current(ctx)
	if err != nil {
		return a.Sessions.SignOut(ctx)
	}

	var errs []error
	if err := a.Sessions.SignOut(ctx); err != nil {
		errs = append(errs, err)
	}
	a.Tokens.Invalidate(sess.UserID)
	if a.Snapshots != nil {
		if err := a.Snapshots.Delete(ctx, sess.UserID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishStats reports the change events published and dropped so far.
func (a *App) PublishStats() (published, dropped int64) {
	if a.publisher == nil {
		return 0, 0
	}
	return a.publisher.Stats()
}

// Close unregisters observers, drains pending change events and releases
// the broker connection and the snapshot database.
func (a *App) Close() error {
	var errs []error
	a.closeOnce.Do(func() {
		for i := len(a.stops) - 1; i >= 0; i-- {
			a.stops[i]()
		}

		if a.publisher != nil {
			a.publisher.Close()
			done := make(chan struct{})
			go func() {
				a.publishing.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(drainTimeout):
				a.Logger.Warn("Timed out draining change events", log.FieldOperation, log.OpShutdown)
			}
			a.cancel()
			published, dropped := a.publisher.Stats()
			a.Logger.Debug("Change events flushed", "published", published, "dropped", dropped)
		}
		if a.broker != nil {
			if err := a.broker.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close broker: %w", err))
			}
		}

		a.caches.Stop()

		if a.Snapshots != nil {
			if err := a.Snapshots.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close snapshots: %w", err))
			}
		}
	})
	return errors.Join(errs...)
}
