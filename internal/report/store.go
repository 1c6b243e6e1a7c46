package report

import (
	"sync"

	"heatwatch/internal/types"
)

// Store holds the latest report per scope in memory. Writes replace the
// whole report under the lock, so a reader either sees the previous report
// or the new one, never a mix.
type Store struct {
	mu      sync.RWMutex
	reports map[string]*types.Report
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{reports: make(map[string]*types.Report)}
}

// Latest returns the current report for a scope, or nil when none exists.
func (s *Store) Latest(scope string) *types.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reports[scope]
}

// Replace installs report as the scope's current report wholesale.
func (s *Store) Replace(report *types.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.Scope] = report
}
