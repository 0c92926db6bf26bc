package drive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "lifeline/pkg/domain"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/tx"
	"lifeline/pkg/requestcontext"
)

type cascadeRecorder struct {
	deleted []id.EventID
}

func (c *cascadeRecorder) DeleteByEvent(_ context.Context, eventID id.EventID) error {
	c.deleted = append(c.deleted, eventID)
	return nil
}

type ServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	cascade *cascadeRecorder
	service *Service
	ctx     context.Context
	now     time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = NewInMemoryStore()
	s.cascade = &cascadeRecorder{}
	s.service = New(s.store, tx.NewSharded(0),
		WithAppointmentCascader(s.cascade))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestCreateEvent() {
	s.Run("creates an upcoming event", func() {
		event, err := s.service.CreateEvent(s.ctx, "Town Hall", s.now.AddDate(0, 0, 14), 30)
		s.Require().NoError(err)
		s.Equal("Town Hall", event.Location)
		s.Equal(30, event.Capacity)
		s.True(event.IsUpcoming(s.now))
	})

	s.Run("accepts an event later today", func() {
		_, err := s.service.CreateEvent(s.ctx, "Town Hall", s.now.Add(4*time.Hour), 30)
		s.NoError(err)
	})

	s.Run("rejects a past date", func() {
		_, err := s.service.CreateEvent(s.ctx, "Town Hall", s.now.AddDate(0, 0, -1), 30)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects non-positive capacity", func() {
		_, err := s.service.CreateEvent(s.ctx, "Town Hall", s.now.AddDate(0, 0, 14), 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects empty location", func() {
		_, err := s.service.CreateEvent(s.ctx, "  ", s.now.AddDate(0, 0, 14), 30)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestDeleteEvent() {
	s.Run("deletes and cascades to appointments", func() {
		event, err := s.service.CreateEvent(s.ctx, "Town Hall", s.now.AddDate(0, 0, 14), 30)
		s.Require().NoError(err)

		s.Require().NoError(s.service.DeleteEvent(s.ctx, event.ID))

		_, err = s.service.GetEvent(s.ctx, event.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Require().Len(s.cascade.deleted, 1)
		s.Equal(event.ID, s.cascade.deleted[0])
	})

	s.Run("unknown event is not found", func() {
		err := s.service.DeleteEvent(s.ctx, id.NewEventID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestListEvents() {
	_, err := s.service.CreateEvent(s.ctx, "Town Hall", s.now.AddDate(0, 0, 14), 30)
	s.Require().NoError(err)
	_, err = s.service.CreateEvent(s.ctx, "Campus", s.now.AddDate(0, 0, 7), 20)
	s.Require().NoError(err)

	events, err := s.service.ListEvents(s.ctx)
	s.Require().NoError(err)
	s.Len(events, 2)
}
