package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/store"
)

// ErrUnknownKind is returned by Format for an event of a collection the
// exporter does not know.
var ErrUnknownKind = errors.New("unknown record kind")

var (
	transactionHeader = []string{"ID", "Op", "Exported At", "Date", "Description", "Location", "Type", "Category", "Amount", "Recurring"}
	assetHeader       = []string{"ID", "Op", "Exported At", "Name", "Type", "Value", "Acquired"}
	liabilityHeader   = []string{"ID", "Op", "Exported At", "Description", "Type", "Amount", "Due Date"}
)

// ExportWorker appends every change event it receives to a spreadsheet, one
// row per event. Transactions go to a tab per year; assets and liabilities
// to one tab each.
type ExportWorker struct {
	rows            sheets.RowWriter
	transactionsTab string
	logger          *log.Logger
	now             func() time.Time
}

func NewExportWorker(rows sheets.RowWriter, transactionsTab string, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	if transactionsTab == "" {
		transactionsTab = "Transactions"
	}
	return &ExportWorker{
		rows:            rows,
		transactionsTab: transactionsTab,
		logger:          logger.WithComponent(log.ComponentWorker),
		now:             time.Now,
	}
}

// HandleChange exports one event. Events that can never be exported are
// logged and acknowledged; only writer failures are returned so the message
// is redelivered.
func (w *ExportWorker) HandleChange(ctx context.Context, ev *amqp.ChangeEvent) error {
	fields := log.NewFields().
		WithRecord(ev.Kind, ev.ID).
		WithOperation(ev.Op).
		WithUser(ev.UserID)
	w.logger.InfoContext(ctx, "Processing change event", fields.ToSlice()...)

	tab, row, err := w.Format(ev)
	if err != nil {
		w.logger.WarnContext(ctx, "Skipping change event", fields.WithError(err).ToSlice()...)
		return nil
	}

	ref, err := w.rows.Append(ctx, tab, row)
	if err != nil {
		return fmt.Errorf("append to %s: %w", tab.Name, err)
	}

	fields["sheets_ref"] = ref
	w.logger.InfoContext(ctx, "Successfully exported change", fields.ToSlice()...)
	return nil
}

// Format builds the tab and row for ev.
func (w *ExportWorker) Format(ev *amqp.ChangeEvent) (sheets.Tab, sheets.Row, error) {
	exported := w.now().UTC().Format(time.RFC3339)
	lead := []any{ev.ID, ev.Op, exported}
	hasRecord := len(ev.Record) > 0

	switch ev.Kind {
	case store.KindTransactions:
		var t core.Transaction
		if hasRecord {
			if err := ev.DecodeRecord(&t); err != nil {
				return sheets.Tab{}, sheets.Row{}, fmt.Errorf("decode transaction: %w", err)
			}
		}
		year := w.now().Year()
		switch {
		case !t.Date.IsZero():
			year = t.Date.Year()
		case !ev.Timestamp.IsZero():
			year = ev.Timestamp.Year()
		}
		tab := sheets.Tab{Name: sheets.TabName(w.transactionsTab, year), Header: transactionHeader}
		cells := lead
		if hasRecord {
			cells = append(cells, t.Date.String(), t.Description, t.Location, string(t.Type), t.Category, amountCell(t.Amount), t.IsRecurring)
		}
		return tab, sheets.Row{Key: ev.ID, Cells: cells}, nil

	case store.KindAssets:
		var a core.Asset
		cells := lead
		if hasRecord {
			if err := ev.DecodeRecord(&a); err != nil {
				return sheets.Tab{}, sheets.Row{}, fmt.Errorf("decode asset: %w", err)
			}
			cells = append(cells, a.Name, a.Type.Label(), amountCell(a.Value), a.AcquiredDate.String())
		}
		return sheets.Tab{Name: "Assets", Header: assetHeader}, sheets.Row{Key: ev.ID, Cells: cells}, nil

	case store.KindLiabilities:
		var l core.Liability
		cells := lead
		if hasRecord {
			if err := ev.DecodeRecord(&l); err != nil {
				return sheets.Tab{}, sheets.Row{}, fmt.Errorf("decode liability: %w", err)
			}
			cells = append(cells, l.Description, l.Type.Label(), amountCell(l.Amount), l.DueDate.String())
		}
		return sheets.Tab{Name: "Liabilities", Header: liabilityHeader}, sheets.Row{Key: ev.ID, Cells: cells}, nil

	default:
		return sheets.Tab{}, sheets.Row{}, fmt.Errorf("%w: %q", ErrUnknownKind, ev.Kind)
	}
}

// amountCell renders an amount with two decimals so the sheet parses it as a number.
func amountCell(a core.Amount) string {
	return a.StringFixed(2)
}
