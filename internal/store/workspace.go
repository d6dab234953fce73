package store

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	"fintrack/internal/session"
)

// Workspace bundles the three stores of one signed-in user.
type Workspace struct {
	Transactions *Store[core.Transaction]
	Assets       *Store[core.Asset]
	Liabilities  *Store[core.Liability]
}

// NewWorkspace creates the three stores over one client and session provider.
func NewWorkspace(r Remote, p session.Provider, opts ...Option) *Workspace {
	return &Workspace{
		Transactions: NewTransactions(r, p, opts...),
		Assets:       NewAssets(r, p, opts...),
		Liabilities:  NewLiabilities(r, p, opts...),
	}
}

// LoadAll loads every store concurrently. A failure in one store does not
// stop the others; every failure is reported.
func (w *Workspace) LoadAll(ctx context.Context) error {
	loaders := []struct {
		kind string
		load func(context.Context) error
	}{
		{KindTransactions, w.Transactions.Load},
		{KindAssets, w.Assets.Load},
		{KindLiabilities, w.Liabilities.Load},
	}

	errs := make([]error, len(loaders))
	var g errgroup.Group
	for i, l := range loaders {
		g.Go(func() error {
			if err := l.load(ctx); err != nil {
				errs[i] = fmt.Errorf("load %s: %w", l.kind, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Subscribe registers fn with every store.
func (w *Workspace) Subscribe(fn func(Change)) (unsubscribe func()) {
	unsubs := []func(){
		w.Transactions.Subscribe(fn),
		w.Assets.Subscribe(fn),
		w.Liabilities.Subscribe(fn),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Reset drops every cached collection.
func (w *Workspace) Reset() {
	w.Transactions.Reset()
	w.Assets.Reset()
	w.Liabilities.Reset()
}

// Busy reports whether any store has an operation in flight.
func (w *Workspace) Busy() bool {
	return w.Transactions.Busy() || w.Assets.Busy() || w.Liabilities.Busy()
}

// Summary computes the dashboard from the cached collections.
func (w *Workspace) Summary() core.DashboardSummary {
	return aggregate.Summarize(w.Transactions.Items(), w.Assets.Items(), w.Liabilities.Items())
}

// Balance returns total assets, total liabilities and net worth.
func (w *Workspace) Balance() aggregate.Balance {
	return aggregate.Totals(w.Assets.Items(), w.Liabilities.Items())
}

// Follow resets the workspace when the user signs out or a different user
// signs in.
func (w *Workspace) Follow(m interface {
	Subscribe(func(session.Event)) func()
}) (unsubscribe func()) {
	return m.Subscribe(func(ev session.Event) {
		switch ev.Type {
		case session.SignedOut:
			w.Reset()
		case session.SignedIn:
			if owner := w.Transactions.Owner(); owner != "" && owner != ev.Session.UserID {
				w.Reset()
			}
		}
	})
}
