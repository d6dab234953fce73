// Package storage keeps the last collections the finance service
// acknowledged, per user and kind, in a local SQLite database so the CLI can
// show them while the service is unreachable.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/log"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned by Load when nothing was saved for the user and kind.
var ErrNoSnapshot = errors.New("no snapshot")

type SnapshotRepository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

func NewSnapshotRepository(dbPath string, logger *log.Logger) (*SnapshotRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	logger.Debug("Snapshot database ready", "path", dbPath, "schema_version", version)
	return &SnapshotRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (r *SnapshotRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Save replaces the snapshot of kind for userID with items encoded as JSON.
func (r *SnapshotRepository) Save(ctx context.Context, userID, kind string, items any) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", kind, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (user_id, kind, payload, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, kind) DO UPDATE SET
			payload = excluded.payload,
			saved_at = excluded.saved_at`,
		userID, kind, string(payload), r.now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save %s snapshot: %w", kind, err)
	}

	r.logger.DebugContext(ctx, "Snapshot saved",
		log.FieldUserID, userID,
		log.FieldKind, kind,
		"bytes", len(payload))
	return nil
}

// Load decodes the snapshot of kind for userID into into and reports when it
// was saved.
func (r *SnapshotRepository) Load(ctx context.Context, userID, kind string, into any) (time.Time, error) {
	var (
		payload string
		savedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, saved_at FROM snapshots WHERE user_id = ? AND kind = ?`,
		userID, kind).Scan(&payload, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("load %s snapshot: %w", kind, err)
	}

	if err := json.Unmarshal([]byte(payload), into); err != nil {
		return time.Time{}, fmt.Errorf("decode %s snapshot: %w", kind, err)
	}
	return time.UnixMilli(savedAt).UTC(), nil
}

// Delete removes every snapshot of userID.
func (r *SnapshotRepository) Delete(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	r.logger.InfoContext(ctx, "Snapshots deleted", log.FieldUserID, userID, log.FieldCount, n)
	return nil
}
