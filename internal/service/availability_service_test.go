package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medpoint/scheduling/internal/domain"
	"github.com/medpoint/scheduling/internal/domain/availability"
	"github.com/medpoint/scheduling/internal/domain/directory"
)

type availabilityFixture struct {
	svc  *AvailabilityService
	repo *fakeAvailabilityRepo
	dir  *fakeDirectory

	doctorID    uuid.UUID
	specialtyID uuid.UUID
	adminID     uuid.UUID
}

func newAvailabilityFixture(t *testing.T) *availabilityFixture {
	t.Helper()
	dir := newFakeDirectory()
	repo := newFakeAvailabilityRepo()
	specialtyID := dir.addSpecialty(20)
	return &availabilityFixture{
		svc:         NewAvailabilityService(repo, dir, newTestAuditService(), zap.NewNop()),
		repo:        repo,
		dir:         dir,
		doctorID:    dir.addDoctor(specialtyID),
		specialtyID: specialtyID,
		adminID:     uuid.New(),
	}
}

func (f *availabilityFixture) ruleCommand(t *testing.T, from, to string) *availability.CreateRuleCommand {
	return &availability.CreateRuleCommand{
		DoctorID:    f.doctorID,
		SpecialtyID: f.specialtyID,
		StartDate:   day(2026, time.June, 1),
		EndDate:     day(2026, time.June, 30),
		DayOfWeek:   domain.Monday,
		TimeFrom:    clock(t, from),
		TimeTo:      clock(t, to),
		CreatedBy:   f.adminID,
	}
}

func TestCreateRule(t *testing.T) {
	f := newAvailabilityFixture(t)

	rule, err := f.svc.CreateRule(context.Background(), f.ruleCommand(t, "09:00", "17:00"), f.adminID, "admin", "10.0.0.1")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, rule.ID)
	assert.True(t, rule.IsAvailable)
	assert.Equal(t, availability.TypeRegular, rule.Type)
	assert.Equal(t, 1, f.repo.count())
}

func TestCreateRuleOverlapLeavesStoreUnchanged(t *testing.T) {
	f := newAvailabilityFixture(t)

	_, err := f.svc.CreateRule(context.Background(), f.ruleCommand(t, "09:00", "17:00"), f.adminID, "admin", "")
	require.NoError(t, err)

	// Partial overlap at the tail of the existing window.
	_, err = f.svc.CreateRule(context.Background(), f.ruleCommand(t, "16:00", "18:00"), f.adminID, "admin", "")
	assert.ErrorIs(t, err, availability.ErrRuleOverlap)
	assert.Equal(t, 1, f.repo.count(), "rejected rule must not be stored")
}

func TestCreateRuleAdjacentWindowsAllowed(t *testing.T) {
	f := newAvailabilityFixture(t)

	_, err := f.svc.CreateRule(context.Background(), f.ruleCommand(t, "09:00", "12:00"), f.adminID, "admin", "")
	require.NoError(t, err)

	// [12:00, 17:00) shares only the boundary instant, which both windows
	// exclude on one side.
	_, err = f.svc.CreateRule(context.Background(), f.ruleCommand(t, "12:00", "17:00"), f.adminID, "admin", "")
	require.NoError(t, err)
	assert.Equal(t, 2, f.repo.count())
}

func TestCreateRuleValidation(t *testing.T) {
	f := newAvailabilityFixture(t)

	cmd := f.ruleCommand(t, "17:00", "09:00")
	_, err := f.svc.CreateRule(context.Background(), cmd, f.adminID, "admin", "")
	assert.ErrorIs(t, err, availability.ErrInvalidTimeWindow)

	cmd = f.ruleCommand(t, "09:00", "17:00")
	cmd.StartDate, cmd.EndDate = cmd.EndDate, cmd.StartDate
	_, err = f.svc.CreateRule(context.Background(), cmd, f.adminID, "admin", "")
	assert.ErrorIs(t, err, availability.ErrInvalidDateWindow)

	cmd = f.ruleCommand(t, "09:00", "17:00")
	cmd.DayOfWeek = "FUNDAY"
	_, err = f.svc.CreateRule(context.Background(), cmd, f.adminID, "admin", "")
	assert.ErrorIs(t, err, availability.ErrInvalidDayOfWeek)

	assert.Equal(t, 0, f.repo.count())
}

func TestCreateRuleUnknownDoctor(t *testing.T) {
	f := newAvailabilityFixture(t)

	cmd := f.ruleCommand(t, "09:00", "17:00")
	cmd.DoctorID = uuid.New()
	_, err := f.svc.CreateRule(context.Background(), cmd, f.adminID, "admin", "")
	assert.ErrorIs(t, err, directory.ErrDoctorNotFound)
}

func TestUpdateRuleShrinkSkipsOwnRow(t *testing.T) {
	f := newAvailabilityFixture(t)

	rule, err := f.svc.CreateRule(context.Background(), f.ruleCommand(t, "09:00", "17:00"), f.adminID, "admin", "")
	require.NoError(t, err)

	// Shrinking still overlaps the rule's own stored window; the check must
	// exclude the row being edited.
	from, to := clock(t, "10:00"), clock(t, "16:00")
	updated, err := f.svc.UpdateRule(context.Background(), rule.ID, &availability.UpdateRuleCommand{
		TimeFrom: &from,
		TimeTo:   &to,
	}, f.adminID, "admin", "")
	require.NoError(t, err)
	assert.Equal(t, "10:00", domain.FormatClock(updated.TimeFrom))
	assert.Equal(t, "16:00", domain.FormatClock(updated.TimeTo))
}

func TestUpdateRuleIntoOverlapRejected(t *testing.T) {
	f := newAvailabilityFixture(t)

	_, err := f.svc.CreateRule(context.Background(), f.ruleCommand(t, "09:00", "12:00"), f.adminID, "admin", "")
	require.NoError(t, err)
	second, err := f.svc.CreateRule(context.Background(), f.ruleCommand(t, "13:00", "17:00"), f.adminID, "admin", "")
	require.NoError(t, err)

	from := clock(t, "11:00")
	_, err = f.svc.UpdateRule(context.Background(), second.ID, &availability.UpdateRuleCommand{
		TimeFrom: &from,
	}, f.adminID, "admin", "")
	assert.ErrorIs(t, err, availability.ErrRuleOverlap)

	stored, err := f.svc.GetRule(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, "13:00", domain.FormatClock(stored.TimeFrom), "rejected update must not change the rule")
}

func TestUpdateRuleReactivationChecksOverlap(t *testing.T) {
	f := newAvailabilityFixture(t)

	first, err := f.svc.CreateRule(context.Background(), f.ruleCommand(t, "09:00", "12:00"), f.adminID, "admin", "")
	require.NoError(t, err)
	require.NoError(t, f.svc.DeactivateRule(context.Background(), first.ID, f.adminID, "admin", ""))

	// The window is free while the first rule sleeps.
	_, err = f.svc.CreateRule(context.Background(), f.ruleCommand(t, "10:00", "13:00"), f.adminID, "admin", "")
	require.NoError(t, err)

	active := true
	_, err = f.svc.UpdateRule(context.Background(), first.ID, &availability.UpdateRuleCommand{
		IsAvailable: &active,
	}, f.adminID, "admin", "")
	assert.ErrorIs(t, err, availability.ErrRuleOverlap)
}

func TestDeactivateRule(t *testing.T) {
	f := newAvailabilityFixture(t)

	rule, err := f.svc.CreateRule(context.Background(), f.ruleCommand(t, "09:00", "17:00"), f.adminID, "admin", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeactivateRule(context.Background(), rule.ID, f.adminID, "admin", ""))

	stored, err := f.svc.GetRule(context.Background(), rule.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAvailable)

	// Deactivated rules no longer block the window.
	_, err = f.svc.CreateRule(context.Background(), f.ruleCommand(t, "09:00", "17:00"), f.adminID, "admin", "")
	require.NoError(t, err)

	err = f.svc.DeactivateRule(context.Background(), uuid.New(), f.adminID, "admin", "")
	assert.ErrorIs(t, err, availability.ErrRuleNotFound)
}
