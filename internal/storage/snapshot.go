package storage

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// Collection is the part of a store a snapshot reads and restores.
type Collection[T any] interface {
	Kind() string
	Items() []T
	Seed(userID string, items []T) bool
}

// SaveCollection stores the current items of c for userID.
func SaveCollection[T any](ctx context.Context, r *SnapshotRepository, userID string, c Collection[T]) error {
	items := c.Items()
	if items == nil {
		items = []T{}
	}
	return r.Save(ctx, userID, c.Kind(), items)
}

// RestoreCollection seeds c with the saved items of userID. It reports
// whether a snapshot existed and was installed.
func RestoreCollection[T any](ctx context.Context, r *SnapshotRepository, userID string, c Collection[T]) (bool, error) {
	var items []T
	if _, err := r.Load(ctx, userID, c.Kind(), &items); err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			return false, nil
		}
		return false, err
	}
	return c.Seed(userID, items), nil
}

// Restore seeds every store of ws that is still uninitialized.
func Restore(ctx context.Context, r *SnapshotRepository, ws *store.Workspace, userID string) error {
	var errs []error
	if _, err := RestoreCollection[core.Transaction](ctx, r, userID, ws.Transactions); err != nil {
		errs = append(errs, fmt.Errorf("restore %s: %w", store.KindTransactions, err))
	}
	if _, err := RestoreCollection[core.Asset](ctx, r, userID, ws.Assets); err != nil {
		errs = append(errs, fmt.Errorf("restore %s: %w", store.KindAssets, err))
	}
	if _, err := RestoreCollection[core.Liability](ctx, r, userID, ws.Liabilities); err != nil {
		errs = append(errs, fmt.Errorf("restore %s: %w", store.KindLiabilities, err))
	}
	return errors.Join(errs...)
}

// Keep saves a store's collection after each successful load or mutation.
// Save failures are logged; they never fail the store operation.
func Keep(ctx context.Context, r *SnapshotRepository, ws *store.Workspace, logger *log.Logger) (stop func()) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	return ws.Subscribe(func(c store.Change) {
		if c.Err != nil || c.Status != store.Ready || c.UserID == "" {
			return
		}
		if c.Op != store.OpLoad && !c.Op.Mutation() {
			return
		}

		var err error
		switch c.Kind {
		case store.KindTransactions:
			err = SaveCollection[core.Transaction](ctx, r, c.UserID, ws.Transactions)
		case store.KindAssets:
			err = SaveCollection[core.Asset](ctx, r, c.UserID, ws.Assets)
		case store.KindLiabilities:
			err = SaveCollection[core.Liability](ctx, r, c.UserID, ws.Liabilities)
		}
		if err != nil {
			logger.WarnContext(ctx, "Failed to save snapshot",
				log.FieldKind, c.Kind,
				log.FieldOperation, log.OpSnapshot,
				log.FieldError, err)
		}
	})
}
