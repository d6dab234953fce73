package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	ports "fintrack/internal/sheets"
)

var (
	_ ports.RowWriter = (*Store)(nil)
	_ ports.RowReader = (*Store)(nil)
)

// Store keeps exported rows in memory, per tab, in append order.
type Store struct {
	mu      sync.Mutex
	headers map[string][]string
	rows    map[string][]ports.Row
}

func New() *Store {
	return &Store{headers: map[string][]string{}, rows: map[string][]ports.Row{}}
}

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, tab ports.Tab, row ports.Row) (string, error) {
	if tab.Name == "" {
		return "", errors.New("tab name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.headers[tab.Name]; !ok {
		s.headers[tab.Name] = slices.Clone(tab.Header)
	}
	row.Cells = slices.Clone(row.Cells)
	s.rows[tab.Name] = append(s.rows[tab.Name], row)
	return fmt.Sprintf("mem:%s!%d", tab.Name, len(s.rows[tab.Name])), nil
}

func (s *Store) Rows(_ context.Context, tab string) ([]ports.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rows[tab]), nil
}

// Header returns the header recorded when tab was first written.
func (s *Store) Header(tab string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.headers[tab])
}

// Tabs lists the tabs written so far, sorted.
func (s *Store) Tabs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tabs := make([]string, 0, len(s.rows))
	for name := range s.rows {
		tabs = append(tabs, name)
	}
	slices.Sort(tabs)
	return tabs
}
