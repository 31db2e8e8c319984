// Package memory is an in-process ReportWriter for tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"sync"

	"moomoney/internal/core"
	"moomoney/internal/sheets"
)

type Store struct {
	mu      sync.Mutex
	reports map[core.MonthKey]sheets.MonthReport
	writes  int
}

func New() *Store {
	return &Store{reports: map[core.MonthKey]sheets.MonthReport{}}
}

// WriteMonthReport replaces the stored report for the month.
func (s *Store) WriteMonthReport(_ context.Context, report sheets.MonthReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.Month] = report
	s.writes++
	return nil
}

// Report returns the last written report for a month.
func (s *Store) Report(month core.MonthKey) (sheets.MonthReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[month]
	return r, ok
}

// Writes counts total report writes, overwrites included.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
