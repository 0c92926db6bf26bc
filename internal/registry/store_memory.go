package registry

import (
	"context"
	"strings"
	"sync"

	id "lifeline/pkg/domain"
	"lifeline/pkg/platform/sentinel"
)

// InMemoryDonorStore keeps donors in a map. Copies go in and out so callers
// never share memory with the store.
type InMemoryDonorStore struct {
	mu     sync.RWMutex
	donors map[id.DonorID]*Donor
}

func NewInMemoryDonorStore() *InMemoryDonorStore {
	return &InMemoryDonorStore{donors: make(map[id.DonorID]*Donor)}
}

func (s *InMemoryDonorStore) Create(_ context.Context, donor *Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donors[donor.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	c := *donor
	s.donors[donor.ID] = &c
	return nil
}

func (s *InMemoryDonorStore) FindByID(_ context.Context, donorID id.DonorID) (*Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	donor, ok := s.donors[donorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *donor
	return &c, nil
}

// Execute holds the store lock across validate and mutate so no concurrent
// writer can interleave between the check and the change.
func (s *InMemoryDonorStore) Execute(_ context.Context, donorID id.DonorID, validate func(*Donor) error, mutate func(*Donor)) (*Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	donor, ok := s.donors[donorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(donor); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(donor)
	}
	c := *donor
	return &c, nil
}

func (s *InMemoryDonorStore) Delete(_ context.Context, donorID id.DonorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donors[donorID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.donors, donorID)
	return nil
}

// InMemoryStaffStore keeps staff in a map with a unique-email index.
type InMemoryStaffStore struct {
	mu      sync.RWMutex
	staff   map[id.StaffID]*Staff
	byEmail map[string]id.StaffID
}

func NewInMemoryStaffStore() *InMemoryStaffStore {
	return &InMemoryStaffStore{
		staff:   make(map[id.StaffID]*Staff),
		byEmail: make(map[string]id.StaffID),
	}
}

func (s *InMemoryStaffStore) CreateIfEmailAvailable(_ context.Context, staff *Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(staff.Email)
	if _, ok := s.byEmail[email]; ok {
		return sentinel.ErrAlreadyUsed
	}
	c := *staff
	s.staff[staff.ID] = &c
	s.byEmail[email] = staff.ID
	return nil
}

func (s *InMemoryStaffStore) FindByID(_ context.Context, staffID id.StaffID) (*Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	staff, ok := s.staff[staffID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *staff
	return &c, nil
}

func (s *InMemoryStaffStore) ListByKind(_ context.Context, kind StaffKind) ([]*Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Staff
	for _, st := range s.staff {
		if st.Kind == kind {
			c := *st
			out = append(out, &c)
		}
	}
	return out, nil
}
