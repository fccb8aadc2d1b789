package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medpoint/scheduling/internal/domain/appointment"
	"github.com/medpoint/scheduling/internal/domain/directory"
	"github.com/medpoint/scheduling/internal/domain/prescription"
	"github.com/medpoint/scheduling/internal/domain/schedule"
	"github.com/medpoint/scheduling/pkg/metrics"
)

// AppointmentService owns the booking transaction and the appointment
// lifecycle. The double-booking guard itself is atomic inside the repository;
// this layer drives the state machine and authorization.
type AppointmentService struct {
	repo             appointment.Repository
	scheduleRepo     schedule.Repository
	prescriptionRepo prescription.Repository
	directory        directory.Repository
	metrics          *metrics.Collector
	auditSvc         *AuditService
	log              *zap.Logger
}

func NewAppointmentService(
	repo appointment.Repository,
	scheduleRepo schedule.Repository,
	prescriptionRepo prescription.Repository,
	dir directory.Repository,
	collector *metrics.Collector,
	auditSvc *AuditService,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		repo:             repo,
		scheduleRepo:     scheduleRepo,
		prescriptionRepo: prescriptionRepo,
		directory:        dir,
		metrics:          collector,
		auditSvc:         auditSvc,
		log:              log,
	}
}

func (s *AppointmentService) Book(ctx context.Context, cmd *appointment.CreateAppointmentCommand, callerID uuid.UUID, callerRole string, callerPatientID *uuid.UUID, ip string) (*appointment.Appointment, error) {
	// Patients may only book for themselves.
	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != cmd.PatientID {
			return nil, ErrForbidden
		}
	}

	if _, err := s.directory.GetPatient(ctx, cmd.PatientID); err != nil {
		return nil, fmt.Errorf("verifying patient: %w", err)
	}
	if _, err := s.scheduleRepo.GetByID(ctx, cmd.ScheduleID); err != nil {
		return nil, fmt.Errorf("verifying schedule: %w", err)
	}

	a := &appointment.Appointment{
		PatientID:     cmd.PatientID,
		ScheduleID:    cmd.ScheduleID,
		Status:        appointment.StatusPending,
		Reason:        cmd.Reason,
		Notes:         cmd.Notes,
		PaymentStatus: appointment.PaymentUnpaid,
		CreatedBy:     cmd.CreatedBy,
	}

	// The repository re-checks slot occupancy and inserts atomically; a lost
	// race comes back as ErrSlotAlreadyBooked, not a duplicate row.
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, appointment.ErrSlotAlreadyBooked) {
			s.metrics.BookingConflictsTotal.Inc()
		}
		return nil, err
	}

	s.metrics.BookingsTotal.WithLabelValues(string(a.Status)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("appointment booked",
		zap.String("appointment_id", a.ID.String()),
		zap.String("schedule_id", a.ScheduleID.String()),
	)

	return a, nil
}

func (s *AppointmentService) Get(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole string, callerPatientID *uuid.UUID, ip string) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != a.PatientID {
			return nil, ErrForbidden
		}
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: callerID, UserRole: callerRole,
		Action: "read", ResourceType: "appointment", ResourceID: id.String(), IPAddress: ip,
	})

	return a, nil
}

func (s *AppointmentService) Confirm(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole string, ip string) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.Confirm(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("updating appointment status: %w", err)
	}

	s.metrics.BookingsTotal.WithLabelValues(string(a.Status)).Inc()
	s.audit(ctx, callerID, callerRole, ip, id, `{"status":"confirmed"}`)
	return a, nil
}

func (s *AppointmentService) CheckIn(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole string, ip string) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.CheckIn(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("updating appointment status: %w", err)
	}

	s.metrics.BookingsTotal.WithLabelValues(string(a.Status)).Inc()
	s.audit(ctx, callerID, callerRole, ip, id, `{"status":"in_progress"}`)
	return a, nil
}

func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID, cmd *appointment.CancelAppointmentCommand, callerID uuid.UUID, callerRole string, callerPatientID *uuid.UUID, ip string) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != a.PatientID {
			return nil, ErrForbidden
		}
	}

	if err := a.Cancel(cmd.Reason); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("updating appointment status: %w", err)
	}

	s.metrics.BookingsTotal.WithLabelValues(string(a.Status)).Inc()
	s.audit(ctx, callerID, callerRole, ip, id,
		fmt.Sprintf(`{"status":"cancelled","reason":%q}`, cmd.Reason))
	return a, nil
}

func (s *AppointmentService) Reschedule(ctx context.Context, id uuid.UUID, cmd *appointment.RescheduleAppointmentCommand, callerID uuid.UUID, callerRole string, callerPatientID *uuid.UUID, ip string) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != a.PatientID {
			return nil, ErrForbidden
		}
	}

	if _, err := s.scheduleRepo.GetByID(ctx, cmd.NewScheduleID); err != nil {
		return nil, fmt.Errorf("verifying schedule: %w", err)
	}

	oldScheduleID := a.ScheduleID
	if err := a.Reschedule(cmd.NewScheduleID); err != nil {
		return nil, err
	}

	// Atomic rebinding; the appointment's own row is excluded from the
	// occupancy check so rescheduling onto the same slot is a no-op.
	if err := s.repo.Reschedule(ctx, a); err != nil {
		if errors.Is(err, appointment.ErrSlotAlreadyBooked) {
			s.metrics.BookingConflictsTotal.Inc()
		}
		return nil, err
	}

	s.audit(ctx, callerID, callerRole, ip, id,
		fmt.Sprintf(`{"status":"pending","schedule_id_from":%q,"schedule_id_to":%q}`,
			oldScheduleID, cmd.NewScheduleID))
	return a, nil
}

// Complete closes an in-progress appointment and writes the prescription in a
// single transaction. Only doctors finalize clinical records.
func (s *AppointmentService) Complete(ctx context.Context, id uuid.UUID, cmd *prescription.CreatePrescriptionCommand, callerID uuid.UUID, callerRole string, callerStaffID *uuid.UUID, ip string) (*appointment.Appointment, error) {
	if callerRole != "doctor" && callerRole != "admin" {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(cmd.Diagnosis) == "" {
		return nil, prescription.ErrDiagnosisRequired
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sched, err := s.scheduleRepo.GetByID(ctx, a.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("loading schedule: %w", err)
	}
	// Doctors may only finalize appointments on their own schedule.
	if callerRole == "doctor" && (callerStaffID == nil || *callerStaffID != sched.DoctorID) {
		return nil, ErrForbidden
	}

	if err := a.Complete(); err != nil {
		return nil, err
	}

	p := &prescription.Prescription{
		PatientID:     a.PatientID,
		DoctorID:      sched.DoctorID,
		AppointmentID: a.ID,
		Diagnosis:     cmd.Diagnosis,
		Instructions:  cmd.Instructions,
		Medications:   cmd.Medications,
		CreatedBy:     cmd.CreatedBy,
	}

	if err := s.repo.CompleteWithPrescription(ctx, a, p); err != nil {
		return nil, fmt.Errorf("completing appointment: %w", err)
	}

	s.metrics.BookingsTotal.WithLabelValues(string(a.Status)).Inc()
	s.audit(ctx, callerID, callerRole, ip, id,
		fmt.Sprintf(`{"status":"completed","prescription_id":%q}`, p.ID))
	return a, nil
}

func (s *AppointmentService) MarkNoShow(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole string, ip string) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.MarkNoShow(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("updating appointment status: %w", err)
	}

	s.metrics.BookingsTotal.WithLabelValues(string(a.Status)).Inc()
	s.audit(ctx, callerID, callerRole, ip, id, `{"status":"no_show"}`)
	return a, nil
}

// GetActiveForSchedule resolves the live appointment occupying a schedule
// slot, for staff working out who holds it. A free slot surfaces as
// ErrAppointmentNotFound.
func (s *AppointmentService) GetActiveForSchedule(ctx context.Context, scheduleID uuid.UUID, callerID uuid.UUID, callerRole string, ip string) (*appointment.Appointment, error) {
	if _, err := s.scheduleRepo.GetByID(ctx, scheduleID); err != nil {
		return nil, fmt.Errorf("verifying schedule: %w", err)
	}

	a, err := s.repo.GetActiveBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: callerID, UserRole: callerRole,
		Action: "read", ResourceType: "appointment", ResourceID: a.ID.String(), IPAddress: ip,
	})

	return a, nil
}

func (s *AppointmentService) GetPrescription(ctx context.Context, appointmentID uuid.UUID, callerID uuid.UUID, callerRole string, callerPatientID *uuid.UUID, ip string) (*prescription.Prescription, error) {
	a, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != a.PatientID {
			return nil, ErrForbidden
		}
	}
	return s.prescriptionRepo.GetByAppointmentID(ctx, appointmentID)
}

func (s *AppointmentService) List(ctx context.Context, q *appointment.ListAppointmentsQuery, callerRole string, callerPatientID *uuid.UUID) (*appointment.PagedAppointments, error) {
	// Patients can only see their own appointments
	if callerRole == "patient" && callerPatientID != nil {
		q.PatientID = callerPatientID
	}
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.repo.List(ctx, q)
}

func (s *AppointmentService) audit(ctx context.Context, callerID uuid.UUID, callerRole, ip string, id uuid.UUID, changes string) {
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "update",
		ResourceType: "appointment",
		ResourceID:   id.String(),
		IPAddress:    ip,
		Changes:      changes,
	})
}
