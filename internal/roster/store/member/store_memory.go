package member

import (
	"context"
	"sync"

	"giftexchange/internal/roster/models"
	id "giftexchange/pkg/domain"
	"giftexchange/pkg/platform/sentinel"
)

// InMemory keeps the roster in maps guarded by a RWMutex. Members are listed in
// insertion order. Returned members are copies.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[id.MemberID]*models.Member
	byName map[string]id.MemberID
	order  []id.MemberID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[id.MemberID]*models.Member),
		byName: make(map[string]id.MemberID),
	}
}

// Create inserts m unless its name key is taken (sentinel.ErrAlreadyUsed).
func (s *InMemory) Create(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := m.NameKey()
	if _, taken := s.byName[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	if _, exists := s.byID[m.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	c := *m
	s.byID[m.ID] = &c
	s.byName[key] = m.ID
	s.order = append(s.order, m.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, memberID id.MemberID) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[memberID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *m
	return &c, nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Member, 0, len(s.order))
	for _, memberID := range s.order {
		c := *s.byID[memberID]
		out = append(out, &c)
	}
	return out, nil
}

// Update replaces the stored member with m, re-indexing its name.
func (s *InMemory) Update(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[m.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	oldKey, newKey := current.NameKey(), m.NameKey()
	if owner, taken := s.byName[newKey]; taken && owner != m.ID {
		return sentinel.ErrAlreadyUsed
	}
	delete(s.byName, oldKey)
	s.byName[newKey] = m.ID
	c := *m
	s.byID[m.ID] = &c
	return nil
}

func (s *InMemory) Delete(_ context.Context, memberID id.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byID[memberID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byName, m.NameKey())
	delete(s.byID, memberID)
	for i, other := range s.order {
		if other == memberID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}
