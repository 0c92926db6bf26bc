package bloodunit

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

type ServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
	ctx     context.Context
	now     time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = NewInMemoryStore()
	s.service = New(s.store, tx.NewSharded(0))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) collect(volume float64) *BloodUnit {
	donorID := id.NewDonorID()
	unit, err := s.service.Collect(s.ctx, &donorID, volume)
	s.Require().NoError(err)
	return unit
}

func (s *ServiceSuite) TestCollect() {
	s.Run("collects a unit in collected state", func() {
		unit := s.collect(420)
		s.Equal(UnitStatusCollected, unit.Status)
		s.Equal(420.0, unit.VolumeML)
		s.Equal(s.now, unit.CollectionDate)
	})

	s.Run("accepts the volume bounds", func() {
		s.Equal(MinVolumeML, s.collect(MinVolumeML).VolumeML)
		s.Equal(MaxVolumeML, s.collect(MaxVolumeML).VolumeML)
	})

	s.Run("rejects out-of-range volumes", func() {
		for _, volume := range []float64{0, 349.99, 500.01, -1} {
			_, err := s.service.Collect(s.ctx, nil, volume)
			s.Require().Error(err, "volume %v", volume)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		}
	})

	s.Run("accepts a nil donor", func() {
		unit, err := s.service.Collect(s.ctx, nil, 400)
		s.Require().NoError(err)
		s.Nil(unit.DonorID)
	})
}

func (s *ServiceSuite) TestRecordScreeningResult() {
	s.Run("pass approves the unit and stocks inventory", func() {
		unit := s.collect(400)

		test, err := s.service.RecordScreeningResult(s.ctx, unit.ID, ScreeningResultPass)
		s.Require().NoError(err)
		s.Equal(ScreeningResultPass, test.Result)

		updated, err := s.store.FindUnit(s.ctx, unit.ID)
		s.Require().NoError(err)
		s.Equal(UnitStatusApproved, updated.Status)

		record, err := s.store.FindInventoryByUnit(s.ctx, unit.ID)
		s.Require().NoError(err)
		s.Equal(unit.VolumeML, record.AmountML)
		s.Equal(unit.CollectionDate, record.CollectionDate)
		s.Nil(record.ConsumedAt)
	})

	s.Run("fail rejects the unit without inventory", func() {
		unit := s.collect(400)

		_, err := s.service.RecordScreeningResult(s.ctx, unit.ID, ScreeningResultFail)
		s.Require().NoError(err)

		updated, err := s.store.FindUnit(s.ctx, unit.ID)
		s.Require().NoError(err)
		s.Equal(UnitStatusRejected, updated.Status)

		_, err = s.service.GetInventory(s.ctx, unit.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("pending parks the unit in tested", func() {
		unit := s.collect(400)

		test, err := s.service.RecordScreeningResult(s.ctx, unit.ID, ScreeningResultPending)
		s.Require().NoError(err)
		s.Equal(ScreeningResultPending, test.Result)

		updated, err := s.store.FindUnit(s.ctx, unit.ID)
		s.Require().NoError(err)
		s.Equal(UnitStatusTested, updated.Status)
	})

	s.Run("pending test resolves in place on re-record", func() {
		unit := s.collect(400)
		first, err := s.service.RecordScreeningResult(s.ctx, unit.ID, ScreeningResultPending)
		s.Require().NoError(err)

		second, err := s.service.RecordScreeningResult(s.ctx, unit.ID, ScreeningResultPass)
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID, "still one test per unit")
		s.Equal(ScreeningResultPass, second.Result)

		updated, err := s.store.FindUnit(s.ctx, unit.ID)
		s.Require().NoError(err)
		s.Equal(UnitStatusApproved, updated.Status)
	})

	s.Run("dispositioned unit takes no further results", func() {
		unit := s.collect(400)
		_, err := s.service.RecordScreeningResult(s.ctx, unit.ID, ScreeningResultPass)
		s.Require().NoError(err)

		_, err = s.service.RecordScreeningResult(s.ctx, unit.ID, ScreeningResultFail)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyDispositioned))
	})

	s.Run("unknown unit is not found", func() {
		_, err := s.service.RecordScreeningResult(s.ctx, id.NewUnitID(), ScreeningResultPass)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestDistribute() {
	s.Run("approved unit distributes and consumes inventory", func() {
		unit := s.collect(400)
		_, err := s.service.RecordScreeningResult(s.ctx, unit.ID, ScreeningResultPass)
		s.Require().NoError(err)

		updated, err := s.service.Distribute(s.ctx, unit.ID)
		s.Require().NoError(err)
		s.Equal(UnitStatusDistributed, updated.Status)

		record, err := s.service.GetInventory(s.ctx, unit.ID)
		s.Require().NoError(err)
		s.Require().NotNil(record.ConsumedAt)
		s.Equal(s.now, *record.ConsumedAt)
	})

	s.Run("unapproved unit cannot distribute", func() {
		unit := s.collect(400)
		_, err := s.service.Distribute(s.ctx, unit.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("distribution is terminal", func() {
		unit := s.collect(400)
		_, err := s.service.RecordScreeningResult(s.ctx, unit.ID, ScreeningResultPass)
		s.Require().NoError(err)
		_, err = s.service.Distribute(s.ctx, unit.ID)
		s.Require().NoError(err)

		_, err = s.service.Distribute(s.ctx, unit.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *ServiceSuite) TestListDistributable() {
	s.Run("only approved units with unconsumed inventory appear", func() {
		approved := s.collect(400)
		_, err := s.service.RecordScreeningResult(s.ctx, approved.ID, ScreeningResultPass)
		s.Require().NoError(err)

		rejected := s.collect(400)
		_, err = s.service.RecordScreeningResult(s.ctx, rejected.ID, ScreeningResultFail)
		s.Require().NoError(err)

		distributed := s.collect(400)
		_, err = s.service.RecordScreeningResult(s.ctx, distributed.ID, ScreeningResultPass)
		s.Require().NoError(err)
		_, err = s.service.Distribute(s.ctx, distributed.ID)
		s.Require().NoError(err)

		s.collect(400) // still only collected

		units, err := s.service.ListDistributable(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(units, 1)
		s.Equal(approved.ID, units[0].ID)
	})
}

func (s *ServiceSuite) TestDetachDonor() {
	donorID := id.NewDonorID()
	unit, err := s.service.Collect(s.ctx, &donorID, 400)
	s.Require().NoError(err)

	s.Require().NoError(s.service.DetachDonor(s.ctx, donorID))

	detached, err := s.store.FindUnit(s.ctx, unit.ID)
	s.Require().NoError(err)
	s.Nil(detached.DonorID)
}
