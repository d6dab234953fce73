package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"fintrack/internal/log"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Exporter appends rows to tabs of one Google spreadsheet, creating a tab
// with its header row the first time it is written.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger

	mu   sync.Mutex
	tabs map[string]bool // known tab titles
}

var (
	_ ports.RowWriter = (*Exporter)(nil)
	_ ports.RowReader = (*Exporter)(nil)
)

// New creates an Exporter authenticated with service account credentials
// (see Credentials). Extra client options are appended after the credentials.
func New(ctx context.Context, spreadsheetID string, logger *log.Logger, opts ...goption.ClientOption) (*Exporter, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	if len(opts) == 0 {
		creds, err := Credentials()
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "Creating Google Sheets service with Service Account",
			"credentials_size", len(creds),
			"scope", gsheet.SpreadsheetsScope)
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID, logger: logger, tabs: map[string]bool{}}, nil
}

// Credentials reads service account JSON from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func Credentials() ([]byte, error) {
	if raw := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); raw != "" {
		return []byte(raw), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

func (e *Exporter) Append(ctx context.Context, tab ports.Tab, row ports.Row) (string, error) {
	if tab.Name == "" {
		return "", errors.New("tab name is required")
	}
	if err := e.ensureTab(ctx, tab); err != nil {
		return "", err
	}

	rng := fmt.Sprintf("%s!A1", quoteTab(tab.Name))
	vr := &gsheet.ValueRange{Values: [][]any{row.Cells}}
	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", tab.Name, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	e.logger.DebugContext(ctx, "Appended row", "tab", tab.Name, "ref", ref, log.FieldRecordID, row.Key)
	return ref, nil
}

func (e *Exporter) Rows(ctx context.Context, tab string) ([]ports.Row, error) {
	rng := fmt.Sprintf("%s!A:Z", quoteTab(tab))
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values), nil
}

// ensureTab creates tab and writes its header unless it already exists.
func (e *Exporter) ensureTab(ctx context.Context, tab ports.Tab) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tabs[tab.Name] {
		return nil
	}
	if len(e.tabs) == 0 {
		ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read spreadsheet %s: %w", e.spreadsheetID, err)
		}
		for _, sh := range ss.Sheets {
			if sh.Properties != nil {
				e.tabs[sh.Properties.Title] = true
			}
		}
		if e.tabs[tab.Name] {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab.Name}},
	}}}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", tab.Name, err)
	}

	if len(tab.Header) > 0 {
		header := make([]any, len(tab.Header))
		for i, h := range tab.Header {
			header[i] = h
		}
		rng := fmt.Sprintf("%s!A1", quoteTab(tab.Name))
		_, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header of %s: %w", tab.Name, err)
		}
	}

	e.tabs[tab.Name] = true
	e.logger.InfoContext(ctx, "Created export tab", "tab", tab.Name)
	return nil
}

// quoteTab quotes a sheet title for use in A1 notation.
func quoteTab(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// parseRows drops the header row and blank rows. The first cell is the key.
func parseRows(values [][]any) []ports.Row {
	if len(values) <= 1 {
		return nil
	}
	out := make([]ports.Row, 0, len(values)-1)
	for _, v := range values[1:] {
		if len(v) == 0 {
			continue
		}
		key := strings.TrimSpace(fmt.Sprint(v[0]))
		if key == "" {
			continue
		}
		out = append(out, ports.Row{Key: key, Cells: v})
	}
	return out
}
