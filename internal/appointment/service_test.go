package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"lifeline/internal/bloodunit"
	"lifeline/internal/drive"
	"lifeline/internal/registry"
	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/tx"
	"lifeline/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	appts   *InMemoryStore
	events  *drive.InMemoryStore
	donors  *registry.InMemoryDonorStore
	units   *bloodunit.InMemoryStore
	unitSvc *bloodunit.Service
	service *Service
	ctx     context.Context
	now     time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	runner := tx.NewSharded(0)
	s.appts = NewInMemoryStore()
	s.events = drive.NewInMemoryStore()
	s.donors = registry.NewInMemoryDonorStore()
	s.units = bloodunit.NewInMemoryStore()
	s.unitSvc = bloodunit.New(s.units, runner)
	s.service = New(s.appts, s.events, s.donors, s.unitSvc, runner)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) newDonor(lastDonation *time.Time) *registry.Donor {
	donor, err := registry.NewDonor(id.NewDonorID(), registry.Person{
		FirstName: "Ada",
		LastName:  "Okafor",
		Contact:   "+15550100",
	}, id.BloodTypeOPos, s.now)
	s.Require().NoError(err)
	donor.LastDonationAt = lastDonation
	s.Require().NoError(s.donors.Create(s.ctx, donor))
	return donor
}

func (s *ServiceSuite) newEvent(capacity int) *drive.Event {
	event, err := drive.NewEvent(id.NewEventID(), "Community Center", s.now.AddDate(0, 0, 7), capacity, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.events.Create(s.ctx, event))
	return event
}

func (s *ServiceSuite) book(donor *registry.Donor, event *drive.Event) *Appointment {
	appt, err := s.service.Create(s.ctx, donor.ID, event.ID, event.Date.Add(10*time.Hour))
	s.Require().NoError(err)
	return appt
}

func (s *ServiceSuite) TestCreate() {
	s.Run("books a scheduled appointment", func() {
		donor := s.newDonor(nil)
		event := s.newEvent(5)

		appt := s.book(donor, event)
		s.Equal(StatusScheduled, appt.Status)
		s.Require().NotNil(appt.DonorID)
		s.Equal(donor.ID, *appt.DonorID)
		s.Equal(event.ID, appt.EventID)
	})

	s.Run("unknown donor is rejected", func() {
		event := s.newEvent(5)
		_, err := s.service.Create(s.ctx, id.NewDonorID(), event.ID, event.Date)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown event is rejected", func() {
		donor := s.newDonor(nil)
		_, err := s.service.Create(s.ctx, donor.ID, id.NewEventID(), s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("event whose date has passed is rejected", func() {
		donor := s.newDonor(nil)
		event := s.newEvent(5)

		lateCtx := requestcontext.WithTime(context.Background(), event.Date.AddDate(0, 0, 2))
		_, err := s.service.Create(lateCtx, donor.ID, event.ID, event.Date)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestCreateCapacity() {
	s.Run("full event rejects further bookings", func() {
		event := s.newEvent(1)
		s.book(s.newDonor(nil), event)

		_, err := s.service.Create(s.ctx, s.newDonor(nil).ID, event.ID, event.Date)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
	})

	s.Run("cancellation frees the slot", func() {
		event := s.newEvent(1)
		appt := s.book(s.newDonor(nil), event)

		_, err := s.service.Transition(s.ctx, appt.ID, StatusCancelled, nil)
		s.Require().NoError(err)

		_, err = s.service.Create(s.ctx, s.newDonor(nil).ID, event.ID, event.Date)
		s.NoError(err)
	})

	s.Run("no-show keeps the slot", func() {
		event := s.newEvent(1)
		appt := s.book(s.newDonor(nil), event)

		_, err := s.service.Transition(s.ctx, appt.ID, StatusNoShow, nil)
		s.Require().NoError(err)

		_, err = s.service.Create(s.ctx, s.newDonor(nil).ID, event.ID, event.Date)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
	})
}

func (s *ServiceSuite) TestCreateEligibility() {
	recent := s.now.AddDate(0, 0, -30)

	s.Run("ineligible donor books anyway under advisory policy", func() {
		donor := s.newDonor(&recent)
		event := s.newEvent(5)

		appt, err := s.service.Create(s.ctx, donor.ID, event.ID, event.Date)
		s.Require().NoError(err)
		s.Equal(StatusScheduled, appt.Status)
	})

	s.Run("hard-block policy rejects ineligible donor", func() {
		blocking := New(s.appts, s.events, s.donors, s.unitSvc, tx.NewSharded(0),
			WithHardBlockIneligible(true))
		donor := s.newDonor(&recent)
		event := s.newEvent(5)

		_, err := blocking.Create(s.ctx, donor.ID, event.ID, event.Date)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDonorIneligible))
	})
}

func (s *ServiceSuite) TestTransition() {
	volume := 450.0

	s.Run("scheduled confirms", func() {
		appt := s.book(s.newDonor(nil), s.newEvent(5))
		updated, err := s.service.Transition(s.ctx, appt.ID, StatusConfirmed, nil)
		s.Require().NoError(err)
		s.Equal(StatusConfirmed, updated.Status)
	})

	s.Run("scheduled cannot complete directly", func() {
		appt := s.book(s.newDonor(nil), s.newEvent(5))
		_, err := s.service.Transition(s.ctx, appt.ID, StatusCompleted, &volume)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("nothing returns to scheduled", func() {
		appt := s.book(s.newDonor(nil), s.newEvent(5))
		_, err := s.service.Transition(s.ctx, appt.ID, StatusScheduled, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("unknown appointment is not found", func() {
		_, err := s.service.Transition(s.ctx, id.NewAppointmentID(), StatusConfirmed, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("completion requires a volume", func() {
		appt := s.book(s.newDonor(nil), s.newEvent(5))
		_, err := s.service.Transition(s.ctx, appt.ID, StatusConfirmed, nil)
		s.Require().NoError(err)

		_, err = s.service.Transition(s.ctx, appt.ID, StatusCompleted, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestCompletionCascade() {
	volume := 425.5

	s.Run("completing stamps the donor and collects one unit", func() {
		donor := s.newDonor(nil)
		appt := s.book(donor, s.newEvent(5))
		_, err := s.service.Transition(s.ctx, appt.ID, StatusConfirmed, nil)
		s.Require().NoError(err)

		updated, err := s.service.Transition(s.ctx, appt.ID, StatusCompleted, &volume)
		s.Require().NoError(err)
		s.Equal(StatusCompleted, updated.Status)
		s.Require().NotNil(updated.CompletedAt)
		s.Equal(s.now, *updated.CompletedAt)

		stamped, err := s.donors.FindByID(s.ctx, donor.ID)
		s.Require().NoError(err)
		s.Require().NotNil(stamped.LastDonationAt)
		s.Equal(s.now, *stamped.LastDonationAt)

		units, err := s.units.ListUnitsByDonor(s.ctx, donor.ID)
		s.Require().NoError(err)
		s.Require().Len(units, 1)
		s.Equal(bloodunit.UnitStatusCollected, units[0].Status)
		s.Equal(volume, units[0].VolumeML)
	})

	s.Run("completed is terminal", func() {
		appt := s.book(s.newDonor(nil), s.newEvent(5))
		_, err := s.service.Transition(s.ctx, appt.ID, StatusConfirmed, nil)
		s.Require().NoError(err)
		_, err = s.service.Transition(s.ctx, appt.ID, StatusCompleted, &volume)
		s.Require().NoError(err)

		_, err = s.service.Transition(s.ctx, appt.ID, StatusCompleted, &volume)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("failed unit collection leaves the appointment untouched", func() {
		donor := s.newDonor(nil)
		appt := s.book(donor, s.newEvent(5))
		_, err := s.service.Transition(s.ctx, appt.ID, StatusConfirmed, nil)
		s.Require().NoError(err)

		tooSmall := 200.0
		_, err = s.service.Transition(s.ctx, appt.ID, StatusCompleted, &tooSmall)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		current, err := s.appts.FindByID(s.ctx, appt.ID)
		s.Require().NoError(err)
		s.Equal(StatusConfirmed, current.Status)

		unstamped, err := s.donors.FindByID(s.ctx, donor.ID)
		s.Require().NoError(err)
		s.Nil(unstamped.LastDonationAt)
	})

	s.Run("detached donor completes with an orphan unit", func() {
		donor := s.newDonor(nil)
		appt := s.book(donor, s.newEvent(5))
		_, err := s.service.Transition(s.ctx, appt.ID, StatusConfirmed, nil)
		s.Require().NoError(err)

		s.Require().NoError(s.appts.DetachDonor(s.ctx, donor.ID))

		updated, err := s.service.Transition(s.ctx, appt.ID, StatusCompleted, &volume)
		s.Require().NoError(err)
		s.Equal(StatusCompleted, updated.Status)
		s.Nil(updated.DonorID)

		units, err := s.units.ListUnitsByDonor(s.ctx, donor.ID)
		s.Require().NoError(err)
		s.Empty(units, "orphan unit carries no donor link")

		unstamped, err := s.donors.FindByID(s.ctx, donor.ID)
		s.Require().NoError(err)
		s.Nil(unstamped.LastDonationAt)
	})

	s.Run("cancellation has no side effects", func() {
		donor := s.newDonor(nil)
		appt := s.book(donor, s.newEvent(5))

		_, err := s.service.Transition(s.ctx, appt.ID, StatusCancelled, nil)
		s.Require().NoError(err)

		units, err := s.units.ListUnitsByDonor(s.ctx, donor.ID)
		s.Require().NoError(err)
		s.Empty(units)

		unstamped, err := s.donors.FindByID(s.ctx, donor.ID)
		s.Require().NoError(err)
		s.Nil(unstamped.LastDonationAt)
	})
}
