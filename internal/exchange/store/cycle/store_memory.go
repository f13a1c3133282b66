package cycle

import (
	"context"
	"slices"
	"sync"

	"giftexchange/internal/pairing/models"
	id "giftexchange/pkg/domain"
	"giftexchange/pkg/platform/sentinel"
)

// InMemory keeps history sorted by cycle key. Stored cycles are cloned on the
// way in and out, so history cannot be mutated after Append.
type InMemory struct {
	mu     sync.RWMutex
	cycles []*models.Cycle
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, c *models.Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, found := s.search(c.Key)
	if found {
		return sentinel.ErrAlreadyUsed
	}
	s.cycles = slices.Insert(s.cycles, i, c.Clone())
	return nil
}

func (s *InMemory) LoadRecent(_ context.Context, n int) ([]models.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return []models.Cycle{}, nil
	}
	out := make([]models.Cycle, 0, min(n, len(s.cycles)))
	for i := len(s.cycles) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *s.cycles[i].Clone())
	}
	return out, nil
}

func (s *InMemory) ListAll(_ context.Context) ([]models.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Cycle, len(s.cycles))
	for i, c := range s.cycles {
		out[i] = *c.Clone()
	}
	return out, nil
}

func (s *InMemory) FindByKey(_ context.Context, key id.CycleKey) (*models.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, found := s.search(key)
	if !found {
		return nil, sentinel.ErrNotFound
	}
	return s.cycles[i].Clone(), nil
}

func (s *InMemory) Latest(_ context.Context) (*models.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.cycles) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return s.cycles[len(s.cycles)-1].Clone(), nil
}

func (s *InMemory) search(key id.CycleKey) (int, bool) {
	return slices.BinarySearchFunc(s.cycles, key, func(c *models.Cycle, k id.CycleKey) int {
		switch {
		case c.Key < k:
			return -1
		case c.Key > k:
			return 1
		}
		return 0
	})
}
