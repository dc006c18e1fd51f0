package store

import (
	"errors"
	"sync"

	"github.com/i474232898/epi-age-comparison/internal/epidemic"
)

var (
	// ErrNotFound is returned when no comparison is stored for a region.
	ErrNotFound = errors.New("no comparison for region")
)

// ComparisonHistory holds the comparisons of one region in insertion order.
type ComparisonHistory struct {
	Comparisons []epidemic.Comparison
}

// MemoryStore is a concurrency-safe in-memory comparison store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: region, value: history
	data map[string]*ComparisonHistory

	maxHistory int // max number of comparisons per region
}

// NewMemoryStore creates a new MemoryStore.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*ComparisonHistory),
		maxHistory: maxHistory,
	}
}

// SaveComparison appends a comparison for its region and enforces retention.
func (s *MemoryStore) SaveComparison(c epidemic.Comparison) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[c.Region]
	if !ok {
		history = &ComparisonHistory{}
		s.data[c.Region] = history
	}

	history.Comparisons = append(history.Comparisons, c)

	if s.maxHistory > 0 && len(history.Comparisons) > s.maxHistory {
		over := len(history.Comparisons) - s.maxHistory
		history.Comparisons = history.Comparisons[over:]
	}
	return nil
}

// GetLatest returns the most recently saved comparison for a region.
func (s *MemoryStore) GetLatest(region string) (epidemic.Comparison, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[region]
	if !ok || len(history.Comparisons) == 0 {
		return epidemic.Comparison{}, ErrNotFound
	}
	return history.Comparisons[len(history.Comparisons)-1], nil
}

// List returns all retained comparisons for a region, oldest first.
func (s *MemoryStore) List(region string) ([]epidemic.Comparison, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[region]
	if !ok || len(history.Comparisons) == 0 {
		return nil, ErrNotFound
	}

	out := make([]epidemic.Comparison, len(history.Comparisons))
	copy(out, history.Comparisons)
	return out, nil
}
