package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"lifeline/internal/appointment"
	"lifeline/internal/bloodunit"
	"lifeline/internal/drive"
	"lifeline/internal/registry"
	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	donors  *registry.InMemoryDonorStore
	events  *drive.InMemoryStore
	appts   *appointment.InMemoryStore
	units   *bloodunit.InMemoryStore
	service *Service
	ctx     context.Context
	now     time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.donors = registry.NewInMemoryDonorStore()
	s.events = drive.NewInMemoryStore()
	s.appts = appointment.NewInMemoryStore()
	s.units = bloodunit.NewInMemoryStore()
	s.service = New(s.donors, s.events, s.appts, s.units)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) newDonor(lastDonation *time.Time) *registry.Donor {
	donor, err := registry.NewDonor(id.NewDonorID(), registry.Person{
		FirstName: "Iris",
		LastName:  "Novak",
		Contact:   "+15550177",
	}, id.BloodTypeBNeg, s.now)
	s.Require().NoError(err)
	donor.LastDonationAt = lastDonation
	s.Require().NoError(s.donors.Create(s.ctx, donor))
	return donor
}

func (s *ServiceSuite) newEvent(location string, capacity int) *drive.Event {
	event, err := drive.NewEvent(id.NewEventID(), location, s.now.AddDate(0, 0, 10), capacity, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.events.Create(s.ctx, event))
	return event
}

func (s *ServiceSuite) newAppointment(donor *registry.Donor, event *drive.Event, slot time.Time, status appointment.Status) *appointment.Appointment {
	appt, err := appointment.NewAppointment(id.NewAppointmentID(), donor.ID, event.ID, slot, s.now)
	s.Require().NoError(err)
	appt.Status = status
	s.Require().NoError(s.appts.Create(s.ctx, appt))
	return appt
}

func (s *ServiceSuite) TestDonorSummary() {
	s.Run("donor with no appointments still appears", func() {
		donor := s.newDonor(nil)

		summary, err := s.service.DonorSummary(s.ctx, donor.ID)
		s.Require().NoError(err)
		s.Equal("Iris Novak", summary.FullName)
		s.Equal(id.BloodTypeBNeg, summary.BloodType)
		s.True(summary.Eligible)
		s.Nil(summary.NextEligibleOn)
		s.Nil(summary.Latest)
	})

	s.Run("latest appointment by time slot wins", func() {
		donor := s.newDonor(nil)
		older := s.newEvent("Old Site", 10)
		newer := s.newEvent("New Site", 10)
		s.newAppointment(donor, older, s.now.AddDate(0, 0, 1), appointment.StatusCompleted)
		s.newAppointment(donor, newer, s.now.AddDate(0, 0, 5), appointment.StatusScheduled)

		summary, err := s.service.DonorSummary(s.ctx, donor.ID)
		s.Require().NoError(err)
		s.Require().NotNil(summary.Latest)
		s.Equal(appointment.StatusScheduled, summary.Latest.Status)
		s.Equal("New Site", summary.Latest.EventLocation)
		s.Equal(newer.Date, summary.Latest.EventDate)
	})

	s.Run("deferred donor reports unlock date", func() {
		last := s.now.AddDate(0, 0, -30)
		donor := s.newDonor(&last)

		summary, err := s.service.DonorSummary(s.ctx, donor.ID)
		s.Require().NoError(err)
		s.False(summary.Eligible)
		s.Require().NotNil(summary.NextEligibleOn)
	})

	s.Run("unknown donor is not found", func() {
		_, err := s.service.DonorSummary(s.ctx, id.NewDonorID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestEventBookingSummary() {
	s.Run("total counts every status, active excludes cancelled", func() {
		event := s.newEvent("Town Hall", 10)
		s.newAppointment(s.newDonor(nil), event, s.now.AddDate(0, 0, 1), appointment.StatusScheduled)
		s.newAppointment(s.newDonor(nil), event, s.now.AddDate(0, 0, 2), appointment.StatusCancelled)
		s.newAppointment(s.newDonor(nil), event, s.now.AddDate(0, 0, 3), appointment.StatusNoShow)

		summary, err := s.service.EventBookingSummary(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(3, summary.TotalAppointments)
		s.Equal(2, summary.ActiveBookings)
		s.Equal(8, summary.SlotsRemaining)
		s.Equal("Town Hall", summary.Location)
	})

	s.Run("empty event reports zero bookings", func() {
		event := s.newEvent("Campus", 5)
		summary, err := s.service.EventBookingSummary(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Zero(summary.TotalAppointments)
		s.Equal(5, summary.SlotsRemaining)
	})

	s.Run("unknown event is not found", func() {
		_, err := s.service.EventBookingSummary(s.ctx, id.NewEventID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestDonorEligibility() {
	last := s.now.AddDate(0, 0, -112)
	donor := s.newDonor(&last)

	result, err := s.service.DonorEligibility(s.ctx, donor.ID)
	s.Require().NoError(err)
	s.True(result.Eligible)
}
