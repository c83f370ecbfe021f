package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/epocher/internal/domain/types"
	"github.com/okian/epocher/pkg/metrics"
)

const defaultCapacity = 10_000

// MemoryStore is an in-memory Store. Reports are kept in insertion order of
// their first Put; replacing a report keeps its position.
type MemoryStore struct {
	mu       sync.RWMutex
	reports  map[string]types.JobReport
	order    []string
	capacity int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(_ context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		reports:  make(map[string]types.JobReport),
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, report types.JobReport) error {
	if report.JobID == "" {
		return ErrMissingID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[report.JobID]; !ok {
		if s.capacity > 0 && len(s.order) >= s.capacity {
			delete(s.reports, s.order[0])
			s.order = s.order[1:]
		}
		s.order = append(s.order, report.JobID)
	}
	s.reports[report.JobID] = report
	metrics.UpdateStoredResults(len(s.reports))
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, jobID string) (types.JobReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[jobID]
	if !ok {
		return types.JobReport{}, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return r, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, limit int) ([]types.JobReport, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]types.JobReport, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.reports[s.order[i]])
	}
	return out, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[jobID]; !ok {
		return
	}
	delete(s.reports, jobID)
	for i, id := range s.order {
		if id == jobID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	metrics.UpdateStoredResults(len(s.reports))
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
