package appointment

import (
	"context"
	"sort"
	"sync"

	id "lifeline/pkg/domain"
	"lifeline/pkg/platform/sentinel"
)

// InMemoryStore keeps appointments in a map guarded by a RWMutex. Copies go
// in and out so callers never alias stored records.
type InMemoryStore struct {
	mu    sync.RWMutex
	appts map[id.AppointmentID]*Appointment
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{appts: make(map[id.AppointmentID]*Appointment)}
}

func (s *InMemoryStore) Create(_ context.Context, appt *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appts[appt.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	c := *appt
	s.appts[appt.ID] = &c
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, apptID id.AppointmentID) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.appts[apptID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *appt
	return &c, nil
}

// Execute holds the store lock across validate and mutate.
func (s *InMemoryStore) Execute(_ context.Context, apptID id.AppointmentID, validate func(*Appointment) error, mutate func(*Appointment)) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	appt, ok := s.appts[apptID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(appt); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(appt)
	}
	c := *appt
	return &c, nil
}

func (s *InMemoryStore) CountActiveByEvent(_ context.Context, eventID id.EventID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, a := range s.appts {
		if a.EventID == eventID && a.CountsAgainstCapacity() {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) ListByEvent(_ context.Context, eventID id.EventID) ([]*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Appointment
	for _, a := range s.appts {
		if a.EventID == eventID {
			c := *a
			out = append(out, &c)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (s *InMemoryStore) ListByDonor(_ context.Context, donorID id.DonorID) ([]*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Appointment
	for _, a := range s.appts {
		if a.DonorID != nil && *a.DonorID == donorID {
			c := *a
			out = append(out, &c)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (s *InMemoryStore) DetachDonor(_ context.Context, donorID id.DonorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appts {
		if a.DonorID != nil && *a.DonorID == donorID {
			a.DonorID = nil
		}
	}
	return nil
}

func (s *InMemoryStore) DeleteByEvent(_ context.Context, eventID id.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for apptID, a := range s.appts {
		if a.EventID == eventID {
			delete(s.appts, apptID)
		}
	}
	return nil
}

func sortAppointments(appts []*Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		return appts[i].TimeSlot.Before(appts[j].TimeSlot)
	})
}
