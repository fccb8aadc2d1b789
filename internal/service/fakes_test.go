package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medpoint/scheduling/internal/domain"
	"github.com/medpoint/scheduling/internal/domain/appointment"
	"github.com/medpoint/scheduling/internal/domain/availability"
	"github.com/medpoint/scheduling/internal/domain/directory"
	"github.com/medpoint/scheduling/internal/domain/prescription"
	"github.com/medpoint/scheduling/internal/domain/schedule"
	"github.com/medpoint/scheduling/pkg/metrics"
)

// One collector per test binary; prometheus panics on duplicate registration.
var testCollector = metrics.NewCollector("scheduling_test")

func clock(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := domain.ParseClock(s)
	if err != nil {
		t.Fatalf("parse clock %q: %v", s, err)
	}
	return v
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func newTestAuditService() *AuditService {
	return NewAuditService(&fakeAuditRepo{}, zap.NewNop())
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

type fakeDirectory struct {
	doctors     map[uuid.UUID]*directory.Doctor
	specialties map[uuid.UUID]*directory.Specialty
	patients    map[uuid.UUID]*directory.Patient

	specialtyLookups int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		doctors:     make(map[uuid.UUID]*directory.Doctor),
		specialties: make(map[uuid.UUID]*directory.Specialty),
		patients:    make(map[uuid.UUID]*directory.Patient),
	}
}

func (f *fakeDirectory) addDoctor(specialtyID uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.doctors[id] = &directory.Doctor{ID: id, SpecialtyID: specialtyID, IsActive: true}
	return id
}

func (f *fakeDirectory) addSpecialty(durationMins int) uuid.UUID {
	id := uuid.New()
	f.specialties[id] = &directory.Specialty{ID: id, AppointmentDurationMins: durationMins}
	return id
}

func (f *fakeDirectory) addPatient() uuid.UUID {
	id := uuid.New()
	f.patients[id] = &directory.Patient{ID: id, IsActive: true}
	return id
}

func (f *fakeDirectory) GetDoctor(_ context.Context, id uuid.UUID) (*directory.Doctor, error) {
	d, ok := f.doctors[id]
	if !ok {
		return nil, directory.ErrDoctorNotFound
	}
	return d, nil
}

func (f *fakeDirectory) GetSpecialty(_ context.Context, id uuid.UUID) (*directory.Specialty, error) {
	f.specialtyLookups++
	s, ok := f.specialties[id]
	if !ok {
		return nil, directory.ErrSpecialtyNotFound
	}
	return s, nil
}

func (f *fakeDirectory) GetPatient(_ context.Context, id uuid.UUID) (*directory.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, directory.ErrPatientNotFound
	}
	return p, nil
}

type fakeAvailabilityRepo struct {
	mu    sync.Mutex
	rules map[uuid.UUID]*availability.Rule
}

func newFakeAvailabilityRepo() *fakeAvailabilityRepo {
	return &fakeAvailabilityRepo{rules: make(map[uuid.UUID]*availability.Rule)}
}

func (f *fakeAvailabilityRepo) Create(_ context.Context, r *availability.Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = uuid.New()
	cp := *r
	f.rules[r.ID] = &cp
	return nil
}

func (f *fakeAvailabilityRepo) GetByID(_ context.Context, id uuid.UUID) (*availability.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[id]
	if !ok {
		return nil, availability.ErrRuleNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeAvailabilityRepo) Update(_ context.Context, id uuid.UUID, cmd *availability.UpdateRuleCommand) (*availability.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[id]
	if !ok {
		return nil, availability.ErrRuleNotFound
	}
	if cmd.StartDate != nil {
		r.StartDate = *cmd.StartDate
	}
	if cmd.EndDate != nil {
		r.EndDate = *cmd.EndDate
	}
	if cmd.TimeFrom != nil {
		r.TimeFrom = *cmd.TimeFrom
	}
	if cmd.TimeTo != nil {
		r.TimeTo = *cmd.TimeTo
	}
	if cmd.IsAvailable != nil {
		r.IsAvailable = *cmd.IsAvailable
	}
	if cmd.Type != nil {
		r.Type = *cmd.Type
	}
	if cmd.Reason != nil {
		r.Reason = *cmd.Reason
	}
	cp := *r
	return &cp, nil
}

func (f *fakeAvailabilityRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[id]
	if !ok {
		return availability.ErrRuleNotFound
	}
	r.IsAvailable = false
	return nil
}

func (f *fakeAvailabilityRepo) FindOverlapping(_ context.Context, doctorID uuid.UUID, dayOfWeek domain.Weekday, timeFrom, timeTo time.Time, excludeID *uuid.UUID) ([]*availability.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*availability.Rule
	for _, r := range f.rules {
		if excludeID != nil && r.ID == *excludeID {
			continue
		}
		if r.DoctorID != doctorID || r.DayOfWeek != dayOfWeek || !r.IsAvailable {
			continue
		}
		if r.OverlapsWindow(timeFrom, timeTo) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAvailabilityRepo) FindActiveByDoctor(_ context.Context, doctorID uuid.UUID) ([]*availability.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*availability.Rule
	for _, r := range f.rules {
		if r.DoctorID == doctorID && r.IsAvailable {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAvailabilityRepo) DoctorIDsWithActiveRules(_ context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, r := range f.rules {
		if !r.IsAvailable {
			continue
		}
		if _, ok := seen[r.DoctorID]; ok {
			continue
		}
		seen[r.DoctorID] = struct{}{}
		out = append(out, r.DoctorID)
	}
	return out, nil
}

func (f *fakeAvailabilityRepo) List(_ context.Context, q *availability.ListRulesQuery) (*availability.PagedRules, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*availability.Rule
	for _, r := range f.rules {
		if q.DoctorID != nil && r.DoctorID != *q.DoctorID {
			continue
		}
		if q.ActiveOnly && !r.IsAvailable {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return &availability.PagedRules{
		Rules:      out,
		TotalCount: int64(len(out)),
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: 1,
	}, nil
}

func (f *fakeAvailabilityRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rules)
}

type fakeScheduleRepo struct {
	mu     sync.Mutex
	slots  map[uuid.UUID]*schedule.Schedule
	keys   map[string]uuid.UUID
	booked map[uuid.UUID]bool

	lastListQuery *schedule.ListSchedulesQuery
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{
		slots:  make(map[uuid.UUID]*schedule.Schedule),
		keys:   make(map[string]uuid.UUID),
		booked: make(map[uuid.UUID]bool),
	}
}

func slotKey(s *schedule.Schedule) string {
	return s.DoctorID.String() + "|" + s.SlotKey()
}

func (f *fakeScheduleRepo) add(doctorID, specialtyID uuid.UUID, date, from, to time.Time) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &schedule.Schedule{
		ID:           uuid.New(),
		DoctorID:     doctorID,
		SpecialtyID:  specialtyID,
		ScheduleDate: date,
		TimeFrom:     from,
		TimeTo:       to,
	}
	f.slots[s.ID] = s
	f.keys[slotKey(s)] = s.ID
	return s.ID
}

func (f *fakeScheduleRepo) CreateBatch(_ context.Context, slots []*schedule.Schedule) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inserted := 0
	for _, s := range slots {
		key := slotKey(s)
		if _, dup := f.keys[key]; dup {
			continue
		}
		cp := *s
		cp.ID = uuid.New()
		f.slots[cp.ID] = &cp
		f.keys[key] = cp.ID
		inserted++
	}
	return inserted, nil
}

func (f *fakeScheduleRepo) GetByID(_ context.Context, id uuid.UUID) (*schedule.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok {
		return nil, schedule.ErrScheduleNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeScheduleRepo) ListByDoctorBetween(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]*schedule.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*schedule.Schedule
	for _, s := range f.slots {
		if s.DoctorID != doctorID || s.ScheduleDate.Before(from) || s.ScheduleDate.After(to) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeScheduleRepo) ListForDay(_ context.Context, doctorID uuid.UUID, specialtyID *uuid.UUID, date time.Time) ([]*schedule.WithBooking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*schedule.WithBooking
	for _, s := range f.slots {
		if s.DoctorID != doctorID || !s.ScheduleDate.Equal(date) {
			continue
		}
		if specialtyID != nil && s.SpecialtyID != *specialtyID {
			continue
		}
		out = append(out, &schedule.WithBooking{Schedule: *s, Booked: f.booked[s.ID]})
	}
	return out, nil
}

func (f *fakeScheduleRepo) List(_ context.Context, q *schedule.ListSchedulesQuery) (*schedule.PagedSchedules, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastListQuery = q
	var out []*schedule.Schedule
	for _, s := range f.slots {
		if q.DoctorID != nil && s.DoctorID != *q.DoctorID {
			continue
		}
		if q.DateFrom != nil && s.ScheduleDate.Before(*q.DateFrom) {
			continue
		}
		if q.DateTo != nil && s.ScheduleDate.After(*q.DateTo) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return &schedule.PagedSchedules{
		Schedules:  out,
		TotalCount: int64(len(out)),
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: 1,
	}, nil
}

func (f *fakeScheduleRepo) slotCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.slots)
}

// fakeAppointmentRepo reproduces the repository's atomic occupancy guard with
// a mutex, and doubles as the prescription read model since completion writes
// both records together.
type fakeAppointmentRepo struct {
	mu            sync.Mutex
	schedules     *fakeScheduleRepo
	appointments  map[uuid.UUID]*appointment.Appointment
	prescriptions map[uuid.UUID]*prescription.Prescription
}

func newFakeAppointmentRepo(schedules *fakeScheduleRepo) *fakeAppointmentRepo {
	return &fakeAppointmentRepo{
		schedules:     schedules,
		appointments:  make(map[uuid.UUID]*appointment.Appointment),
		prescriptions: make(map[uuid.UUID]*prescription.Prescription),
	}
}

func (f *fakeAppointmentRepo) ensureSlotFree(scheduleID uuid.UUID, excludeID *uuid.UUID) error {
	for _, a := range f.appointments {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.ScheduleID == scheduleID && a.Status.Occupies() {
			return appointment.ErrSlotAlreadyBooked
		}
	}
	return nil
}

func (f *fakeAppointmentRepo) Create(ctx context.Context, a *appointment.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.schedules.GetByID(ctx, a.ScheduleID); err != nil {
		return err
	}
	if err := f.ensureSlotFree(a.ScheduleID, nil); err != nil {
		return err
	}
	a.ID = uuid.New()
	cp := *a
	f.appointments[a.ID] = &cp
	return nil
}

func (f *fakeAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAppointmentRepo) UpdateStatus(_ context.Context, a *appointment.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.appointments[a.ID]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	cp := *a
	f.appointments[a.ID] = &cp
	return nil
}

func (f *fakeAppointmentRepo) Reschedule(ctx context.Context, a *appointment.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.schedules.GetByID(ctx, a.ScheduleID); err != nil {
		return err
	}
	if err := f.ensureSlotFree(a.ScheduleID, &a.ID); err != nil {
		return err
	}
	cp := *a
	f.appointments[a.ID] = &cp
	return nil
}

func (f *fakeAppointmentRepo) CompleteWithPrescription(_ context.Context, a *appointment.Appointment, p *prescription.Prescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.appointments[a.ID]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	cp := *a
	f.appointments[a.ID] = &cp
	p.ID = uuid.New()
	pcp := *p
	f.prescriptions[p.AppointmentID] = &pcp
	return nil
}

func (f *fakeAppointmentRepo) GetActiveBySchedule(_ context.Context, scheduleID uuid.UUID) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appointments {
		if a.ScheduleID == scheduleID && a.Status.Occupies() {
			cp := *a
			return &cp, nil
		}
	}
	return nil, appointment.ErrAppointmentNotFound
}

func (f *fakeAppointmentRepo) List(_ context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range f.appointments {
		if q.PatientID != nil && a.PatientID != *q.PatientID {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return &appointment.PagedAppointments{
		Appointments: out,
		TotalCount:   int64(len(out)),
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   1,
	}, nil
}

func (f *fakeAppointmentRepo) GetPrescriptionByID(_ context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.prescriptions {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, prescription.ErrPrescriptionNotFound
}

// prescriptionReader adapts fakeAppointmentRepo to the prescription read
// interface.
type prescriptionReader struct {
	repo *fakeAppointmentRepo
}

func (r prescriptionReader) GetByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	return r.repo.GetPrescriptionByID(ctx, id)
}

func (r prescriptionReader) GetByAppointmentID(_ context.Context, appointmentID uuid.UUID) (*prescription.Prescription, error) {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	p, ok := r.repo.prescriptions[appointmentID]
	if !ok {
		return nil, prescription.ErrPrescriptionNotFound
	}
	cp := *p
	return &cp, nil
}
