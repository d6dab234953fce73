package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Tab is a named sheet inside the export spreadsheet. Header is written as
// the first row when the tab is created.
type Tab struct {
	Name   string
	Header []string
}

// Row is one exported line. Key identifies the record it was built from.
type Row struct {
	Key   string
	Cells []any
}

// Ports for outbound adapters.
type (
	RowWriter interface {
		Append(ctx context.Context, tab Tab, row Row) (rowRef string, err error)
	}

	// RowReader returns every data row of a tab, header excluded.
	RowReader interface {
		Rows(ctx context.Context, tab string) ([]Row, error)
	}
)

// TabName returns "<year> <base>" unless base already starts with a 4-digit year.
func TabName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
