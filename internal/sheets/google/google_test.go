package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
)

// fakeSheets serves the handful of Sheets API calls the exporter makes.
type fakeSheets struct {
	mu       sync.Mutex
	titles   []string
	calls    []string
	appended [][]any
	header   []any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	f.calls = append(f.calls, r.Method+" "+path)
	w.Header().Set("Content-Type", "application/json")

	var body struct {
		Values   [][]any `json:"values"`
		Requests []struct {
			AddSheet struct {
				Properties struct {
					Title string `json:"title"`
				} `json:"properties"`
			} `json:"addSheet"`
		} `json:"requests"`
	}
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
	}

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		for _, req := range body.Requests {
			f.titles = append(f.titles, req.AddSheet.Properties.Title)
		}
		_, _ = w.Write([]byte(`{"spreadsheetId": "sheet-1"}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		f.appended = append(f.appended, body.Values...)
		_, _ = w.Write([]byte(`{"updates": {"updatedRange": "'2024 Transactions'!A2:C2"}}`))
	case r.Method == http.MethodPut:
		if len(body.Values) > 0 {
			f.header = body.Values[0]
		}
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		_, _ = w.Write([]byte(`{"values": [["ID", "Op"], ["1", "create"], [], ["", "orphan"], ["2", "update"]]}`))
	case r.Method == http.MethodGet:
		sheets := make([]map[string]any, 0, len(f.titles))
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	default:
		http.NotFound(w, r)
	}
}

func newTestExporter(t *testing.T, f *fakeSheets) *Exporter {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	e, err := New(context.Background(), "sheet-1", nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := Credentials(); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	got, err := Credentials()
	if err != nil || string(got) != `{"type":"service_account"}` {
		t.Fatalf("Credentials() = %q, %v", got, err)
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"inline":true}`)
	got, err = Credentials()
	if err != nil || string(got) != `{"inline":true}` {
		t.Fatalf("inline JSON should win, got %q, %v", got, err)
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", filepath.Join(t.TempDir(), "missing.json"))
	if _, err := Credentials(); err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestExporter_AppendCreatesTabOnce(t *testing.T) {
	f := &fakeSheets{titles: []string{"Sheet1"}}
	e := newTestExporter(t, f)
	tab := ports.Tab{Name: "2024 Transactions", Header: []string{"ID", "Op", "Amount"}}

	ref, err := e.Append(context.Background(), tab, ports.Row{Key: "1", Cells: []any{"1", "create", "12.50"}})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "'2024 Transactions'!A2:C2" {
		t.Errorf("ref = %q", ref)
	}
	if _, err := e.Append(context.Background(), tab, ports.Row{Key: "2", Cells: []any{"2", "update", "3"}}); err != nil {
		t.Fatalf("second Append() error = %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.titles) != 2 || f.titles[1] != "2024 Transactions" {
		t.Errorf("titles = %v", f.titles)
	}
	if len(f.header) != 3 || f.header[0] != "ID" {
		t.Errorf("header = %v", f.header)
	}
	if len(f.appended) != 2 || f.appended[1][1] != "update" {
		t.Errorf("appended = %v", f.appended)
	}

	var batchUpdates int
	for _, c := range f.calls {
		if strings.HasSuffix(c, ":batchUpdate") {
			batchUpdates++
		}
	}
	if batchUpdates != 1 {
		t.Errorf("batchUpdate calls = %d, want 1 (calls: %v)", batchUpdates, f.calls)
	}
}

func TestExporter_AppendExistingTab(t *testing.T) {
	f := &fakeSheets{titles: []string{"2024 Transactions"}}
	e := newTestExporter(t, f)

	if _, err := e.Append(context.Background(), ports.Tab{Name: "2024 Transactions", Header: []string{"ID"}}, ports.Row{Key: "1", Cells: []any{"1"}}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.titles) != 1 || f.header != nil {
		t.Errorf("existing tab must not be recreated: titles=%v header=%v", f.titles, f.header)
	}
}

func TestExporter_Rows(t *testing.T) {
	e := newTestExporter(t, &fakeSheets{})

	rows, err := e.Rows(context.Background(), "2024 Transactions")
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	if len(rows) != 2 || rows[0].Key != "1" || rows[1].Key != "2" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestQuoteTab(t *testing.T) {
	tests := map[string]string{
		"Transactions":   "'Transactions'",
		"2024 Assets":    "'2024 Assets'",
		"Bob's Accounts": "'Bob''s Accounts'",
	}
	for in, want := range tests {
		if got := quoteTab(in); got != want {
			t.Errorf("quoteTab(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseRows(t *testing.T) {
	if got := parseRows(nil); got != nil {
		t.Errorf("parseRows(nil) = %v", got)
	}
	if got := parseRows([][]any{{"ID"}}); got != nil {
		t.Errorf("header only should yield no rows, got %v", got)
	}
	got := parseRows([][]any{{"ID"}, {" 7 ", "x"}, {}, {""}})
	if len(got) != 1 || got[0].Key != "7" || len(got[0].Cells) != 2 {
		t.Errorf("parseRows() = %v", got)
	}
}
