package registry

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

type detachRecorder struct {
	detached []id.DonorID
}

func (d *detachRecorder) DetachDonor(_ context.Context, donorID id.DonorID) error {
	d.detached = append(d.detached, donorID)
	return nil
}

type ServiceSuite struct {
	suite.Suite
	donors   *InMemoryDonorStore
	staff    *InMemoryStaffStore
	detacher *detachRecorder
	service  *Service
	ctx      context.Context
	now      time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.donors = NewInMemoryDonorStore()
	s.staff = NewInMemoryStaffStore()
	s.detacher = &detachRecorder{}
	s.service = New(s.donors, s.staff, tx.NewSharded(0),
		WithDonorDetachers(s.detacher))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) person() Person {
	return Person{FirstName: "Maya", LastName: "Chen", Contact: "+15550123"}
}

func (s *ServiceSuite) TestRegisterDonor() {
	s.Run("registers with no donation history", func() {
		donor, err := s.service.RegisterDonor(s.ctx, s.person(), id.BloodTypeABNeg)
		s.Require().NoError(err)
		s.Equal(id.BloodTypeABNeg, donor.BloodType)
		s.Nil(donor.LastDonationAt)
		s.Equal(s.now, donor.CreatedAt)
	})

	s.Run("rejects missing name", func() {
		_, err := s.service.RegisterDonor(s.ctx, Person{Contact: "+15550123"}, id.BloodTypeAPos)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects unsupported blood type", func() {
		_, err := s.service.RegisterDonor(s.ctx, s.person(), id.BloodType("C+"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestGetDonor() {
	donor, err := s.service.RegisterDonor(s.ctx, s.person(), id.BloodTypeOPos)
	s.Require().NoError(err)

	found, err := s.service.GetDonor(s.ctx, donor.ID)
	s.Require().NoError(err)
	s.Equal(donor.ID, found.ID)
	s.Equal("Maya Chen", found.Person.FullName())

	_, err = s.service.GetDonor(s.ctx, id.NewDonorID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestDeleteDonor() {
	s.Run("deletes and detaches dependents", func() {
		donor, err := s.service.RegisterDonor(s.ctx, s.person(), id.BloodTypeOPos)
		s.Require().NoError(err)

		s.Require().NoError(s.service.DeleteDonor(s.ctx, donor.ID))

		_, err = s.service.GetDonor(s.ctx, donor.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Require().Len(s.detacher.detached, 1)
		s.Equal(donor.ID, s.detacher.detached[0])
	})

	s.Run("unknown donor is not found", func() {
		err := s.service.DeleteDonor(s.ctx, id.NewDonorID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestRegisterStaff() {
	s.Run("registers field staff", func() {
		staff, err := s.service.RegisterStaff(s.ctx, s.person(), "Phlebotomist", "maya.chen@lifeline.org", StaffKindField)
		s.Require().NoError(err)
		s.Equal(StaffKindField, staff.Kind)
		s.Equal("maya.chen@lifeline.org", staff.Email)
	})

	s.Run("email is normalized and unique across kinds", func() {
		_, err := s.service.RegisterStaff(s.ctx, s.person(), "Phlebotomist", "dup@lifeline.org", StaffKindField)
		s.Require().NoError(err)

		_, err = s.service.RegisterStaff(s.ctx, s.person(), "Coordinator", "  DUP@lifeline.org ", StaffKindDrive)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects invalid kind", func() {
		_, err := s.service.RegisterStaff(s.ctx, s.person(), "Phlebotomist", "x@lifeline.org", StaffKind("manager"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestListStaffByKind() {
	_, err := s.service.RegisterStaff(s.ctx, s.person(), "Phlebotomist", "field@lifeline.org", StaffKindField)
	s.Require().NoError(err)
	_, err = s.service.RegisterStaff(s.ctx, s.person(), "Coordinator", "drive@lifeline.org", StaffKindDrive)
	s.Require().NoError(err)

	field, err := s.service.ListStaffByKind(s.ctx, StaffKindField)
	s.Require().NoError(err)
	s.Require().Len(field, 1)
	s.Equal("field@lifeline.org", field[0].Email)

	_, err = s.service.ListStaffByKind(s.ctx, StaffKind("other"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestRecordDonationNeverMovesBackward() {
	donor, err := s.service.RegisterDonor(s.ctx, s.person(), id.BloodTypeOPos)
	s.Require().NoError(err)

	later := s.now.AddDate(0, 0, 120)
	_, err = s.donors.Execute(s.ctx, donor.ID, nil, func(d *Donor) { d.RecordDonation(later) })
	s.Require().NoError(err)
	_, err = s.donors.Execute(s.ctx, donor.ID, nil, func(d *Donor) { d.RecordDonation(s.now) })
	s.Require().NoError(err)

	current, err := s.donors.FindByID(s.ctx, donor.ID)
	s.Require().NoError(err)
	s.Require().NotNil(current.LastDonationAt)
	s.Equal(later, *current.LastDonationAt)
}
