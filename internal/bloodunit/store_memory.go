package bloodunit

import (
	"context"
	"sort"
	"sync"
	"time"

	id "lifeline/pkg/domain"
	"lifeline/pkg/platform/sentinel"
)

// InMemoryStore keeps units, screening tests and inventory records in maps.
// One lock covers all three so the one-to-one invariants hold without
// cross-map races.
type InMemoryStore struct {
	mu        sync.RWMutex
	units     map[id.UnitID]*BloodUnit
	tests     map[id.UnitID]*ScreeningTest
	inventory map[id.UnitID]*InventoryRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		units:     make(map[id.UnitID]*BloodUnit),
		tests:     make(map[id.UnitID]*ScreeningTest),
		inventory: make(map[id.UnitID]*InventoryRecord),
	}
}

func (s *InMemoryStore) CreateUnit(_ context.Context, unit *BloodUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[unit.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	c := *unit
	s.units[unit.ID] = &c
	return nil
}

func (s *InMemoryStore) FindUnit(_ context.Context, unitID id.UnitID) (*BloodUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unit, ok := s.units[unitID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *unit
	return &c, nil
}

// ExecuteUnit holds the store lock across validate and mutate.
func (s *InMemoryStore) ExecuteUnit(_ context.Context, unitID id.UnitID, validate func(*BloodUnit) error, mutate func(*BloodUnit)) (*BloodUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unit, ok := s.units[unitID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(unit); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(unit)
	}
	c := *unit
	return &c, nil
}

func (s *InMemoryStore) ListUnitsByDonor(_ context.Context, donorID id.DonorID) ([]*BloodUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*BloodUnit
	for _, u := range s.units {
		if u.DonorID != nil && *u.DonorID == donorID {
			c := *u
			out = append(out, &c)
		}
	}
	sortUnits(out)
	return out, nil
}

func (s *InMemoryStore) ListDistributable(_ context.Context) ([]*BloodUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*BloodUnit
	for _, u := range s.units {
		if u.Status != UnitStatusApproved {
			continue
		}
		if record, ok := s.inventory[u.ID]; !ok || record.ConsumedAt != nil {
			continue
		}
		c := *u
		out = append(out, &c)
	}
	sortUnits(out)
	return out, nil
}

func (s *InMemoryStore) DetachDonor(_ context.Context, donorID id.DonorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.units {
		if u.DonorID != nil && *u.DonorID == donorID {
			u.DonorID = nil
		}
	}
	return nil
}

func (s *InMemoryStore) FindTestByUnit(_ context.Context, unitID id.UnitID) (*ScreeningTest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	test, ok := s.tests[unitID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *test
	return &c, nil
}

func (s *InMemoryStore) CreateTest(_ context.Context, test *ScreeningTest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[test.UnitID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	c := *test
	s.tests[test.UnitID] = &c
	return nil
}

func (s *InMemoryStore) UpdateTest(_ context.Context, test *ScreeningTest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[test.UnitID]; !ok {
		return sentinel.ErrNotFound
	}
	c := *test
	s.tests[test.UnitID] = &c
	return nil
}

func (s *InMemoryStore) CreateInventory(_ context.Context, record *InventoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inventory[record.UnitID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	c := *record
	s.inventory[record.UnitID] = &c
	return nil
}

func (s *InMemoryStore) FindInventoryByUnit(_ context.Context, unitID id.UnitID) (*InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.inventory[unitID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *record
	return &c, nil
}

func (s *InMemoryStore) ConsumeInventory(_ context.Context, unitID id.UnitID, consumedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.inventory[unitID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if record.ConsumedAt != nil {
		return sentinel.ErrInvalidState
	}
	t := consumedAt
	record.ConsumedAt = &t
	return nil
}

func sortUnits(units []*BloodUnit) {
	sort.Slice(units, func(i, j int) bool {
		return units[i].CreatedAt.Before(units[j].CreatedAt)
	})
}
