package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/store"
)

var fixedNow = time.Date(2025, 3, 9, 10, 30, 0, 0, time.UTC)

func newTestWorker(rows ports.RowWriter) *ExportWorker {
	w := NewExportWorker(rows, "Transactions", nil)
	w.now = func() time.Time { return fixedNow }
	return w
}

func mustEvent(t *testing.T, kind, op, id string, record any) *amqp.ChangeEvent {
	t.Helper()
	ev, err := amqp.NewChangeEvent(kind, op, id, "u1", record)
	if err != nil {
		t.Fatalf("NewChangeEvent() error = %v", err)
	}
	return ev
}

func TestExportWorker_Format(t *testing.T) {
	w := newTestWorker(memory.New())

	tests := []struct {
		name    string
		ev      *amqp.ChangeEvent
		tab     string
		cells   []any
		wantErr error
	}{
		{
			name: "transaction goes to the tab of its year",
			ev: mustEvent(t, store.KindTransactions, "create", "12", core.Transaction{
				ID: "12", Date: core.NewDate(2024, 11, 2), Description: "Groceries", Location: "Market",
				Amount: core.MustAmount("12.5"), Type: core.Expense, Category: "food",
			}),
			tab:   "2024 Transactions",
			cells: []any{"12", "create", "2025-03-09T10:30:00Z", "2024-11-02", "Groceries", "Market", "expense", "food", "12.50", false},
		},
		{
			name: "asset",
			ev: mustEvent(t, store.KindAssets, "update", "3", core.Asset{
				ID: "3", Name: "Flat", Type: core.RealEstate, Value: core.MustAmount("250000"), AcquiredDate: core.NewDate(2020, 1, 31),
			}),
			tab:   "Assets",
			cells: []any{"3", "update", "2025-03-09T10:30:00Z", "Flat", "Real Estate", "250000.00", "2020-01-31"},
		},
		{
			name: "liability",
			ev: mustEvent(t, store.KindLiabilities, "create", "8", core.Liability{
				ID: "8", Description: "Visa", Type: core.CreditCard, Amount: core.MustAmount("99.9"), DueDate: core.NewDate(2025, 4, 1),
			}),
			tab:   "Liabilities",
			cells: []any{"8", "create", "2025-03-09T10:30:00Z", "Visa", "Credit Card", "99.90", "2025-04-01"},
		},
		{
			name:  "delete without record uses the event year",
			ev:    &amqp.ChangeEvent{Kind: store.KindTransactions, Op: "delete", ID: "4", Timestamp: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)},
			tab:   "2023 Transactions",
			cells: []any{"4", "delete", "2025-03-09T10:30:00Z"},
		},
		{
			name:    "unknown kind",
			ev:      &amqp.ChangeEvent{Kind: "budgets", Op: "create", ID: "1"},
			wantErr: ErrUnknownKind,
		},
		{
			name:    "malformed record",
			ev:      &amqp.ChangeEvent{Kind: store.KindAssets, Op: "create", ID: "1", Record: []byte(`{"value": "lots"}`)},
			wantErr: core.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tab, row, err := w.Format(tt.ev)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("Format() error = nil, want %v", tt.wantErr)
				}
				if tt.wantErr == ErrUnknownKind && !errors.Is(err, ErrUnknownKind) {
					t.Fatalf("Format() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if tab.Name != tt.tab {
				t.Errorf("tab = %q, want %q", tab.Name, tt.tab)
			}
			if len(tab.Header) < len(row.Cells) {
				t.Errorf("header %v shorter than row %v", tab.Header, row.Cells)
			}
			if row.Key != tt.ev.ID {
				t.Errorf("key = %q, want %q", row.Key, tt.ev.ID)
			}
			if len(row.Cells) != len(tt.cells) {
				t.Fatalf("cells = %v, want %v", row.Cells, tt.cells)
			}
			for i := range tt.cells {
				if row.Cells[i] != tt.cells[i] {
					t.Errorf("cell %d = %v, want %v", i, row.Cells[i], tt.cells[i])
				}
			}
		})
	}
}

func TestExportWorker_HandleChange(t *testing.T) {
	rows := memory.New()
	w := newTestWorker(rows)
	ctx := context.Background()

	ev := mustEvent(t, store.KindAssets, "create", "1", core.Asset{ID: "1", Name: "Wallet", Type: core.Cash, Value: core.MustAmount("20")})
	if err := w.HandleChange(ctx, ev); err != nil {
		t.Fatalf("HandleChange() error = %v", err)
	}
	// Unknown kinds are acknowledged without writing.
	if err := w.HandleChange(ctx, &amqp.ChangeEvent{Kind: "budgets", Op: "create", ID: "2"}); err != nil {
		t.Fatalf("HandleChange() error = %v", err)
	}

	got, _ := rows.Rows(ctx, "Assets")
	if len(got) != 1 || got[0].Key != "1" {
		t.Fatalf("rows = %v", got)
	}
	if h := rows.Header("Assets"); len(h) == 0 || h[0] != "ID" {
		t.Errorf("header = %v", h)
	}
	if tabs := rows.Tabs(); len(tabs) != 1 {
		t.Errorf("tabs = %v", tabs)
	}
}

type failingWriter struct{}

func (failingWriter) Append(context.Context, ports.Tab, ports.Row) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestExportWorker_WriterFailureIsReturned(t *testing.T) {
	w := newTestWorker(failingWriter{})
	ev := mustEvent(t, store.KindLiabilities, "delete", "5", nil)

	err := w.HandleChange(context.Background(), ev)
	if err == nil {
		t.Fatal("HandleChange() should return writer failures for redelivery")
	}
}
