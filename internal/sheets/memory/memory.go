package memory

import (
	"context"
	"fmt"
	"sync"

	"fondi/internal/core"
	"fondi/internal/services"
)

// Store keeps written reports in memory, one per budget month. It backs
// tests and local runs without Google credentials.
type Store struct {
	mu      sync.Mutex
	reports map[core.MonthKey]services.MonthReport
	writes  int
}

func New() *Store {
	return &Store{reports: make(map[core.MonthKey]services.MonthReport)}
}

// WriteMonthReport stores the report and returns a synthetic range reference.
func (s *Store) WriteMonthReport(_ context.Context, report services.MonthReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.Budget.BudgetMonthKey] = report
	s.writes++
	return fmt.Sprintf("mem:%s", report.Budget.BudgetMonthKey), nil
}

// Report returns the last report written for the month.
func (s *Store) Report(key core.MonthKey) (services.MonthReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[key]
	return r, ok
}

// Writes returns how many writes the store has seen.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
