package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medpoint/scheduling/internal/domain"
	"github.com/medpoint/scheduling/internal/domain/availability"
	"github.com/medpoint/scheduling/internal/domain/directory"
	"github.com/medpoint/scheduling/internal/domain/schedule"
	"github.com/medpoint/scheduling/internal/timeslot"
	"github.com/medpoint/scheduling/pkg/metrics"
)

const (
	minGenerationYear = 2000
	maxGenerationYear = 2100
)

// ScheduleService materializes availability rules into concrete schedule
// slots and answers slot-availability lookups against them.
type ScheduleService struct {
	scheduleRepo     schedule.Repository
	availabilityRepo availability.Repository
	directory        directory.Repository
	metrics          *metrics.Collector
	clinicTZ         *time.Location
	auditSvc         *AuditService
	log              *zap.Logger
}

func NewScheduleService(
	scheduleRepo schedule.Repository,
	availabilityRepo availability.Repository,
	dir directory.Repository,
	collector *metrics.Collector,
	clinicTZ *time.Location,
	auditSvc *AuditService,
	log *zap.Logger,
) *ScheduleService {
	return &ScheduleService{
		scheduleRepo:     scheduleRepo,
		availabilityRepo: availabilityRepo,
		directory:        dir,
		metrics:          collector,
		clinicTZ:         clinicTZ,
		auditSvc:         auditSvc,
		log:              log,
	}
}

// durationCache memoizes specialty durations for one generation run. It is an
// explicit per-run object rather than service state so the generator stays
// independently testable.
type durationCache struct {
	directory directory.Repository
	durations map[uuid.UUID]int
}

func newDurationCache(dir directory.Repository) *durationCache {
	return &durationCache{directory: dir, durations: make(map[uuid.UUID]int)}
}

func (c *durationCache) minutes(ctx context.Context, specialtyID uuid.UUID) (int, error) {
	if mins, ok := c.durations[specialtyID]; ok {
		return mins, nil
	}
	sp, err := c.directory.GetSpecialty(ctx, specialtyID)
	if err != nil {
		return 0, err
	}
	c.durations[specialtyID] = sp.AppointmentDurationMins
	return sp.AppointmentDurationMins, nil
}

// Generate expands active availability rules into schedule slots for one
// calendar month. Re-running for the same doctor/month never duplicates rows;
// it only fills gaps left by new or changed availability.
func (s *ScheduleService) Generate(ctx context.Context, cmd *schedule.GenerateCommand, callerID uuid.UUID, callerRole string, ip string) (schedule.GenerationResult, error) {
	var result schedule.GenerationResult

	if cmd.Month < 1 || cmd.Month > 12 {
		return result, schedule.ErrInvalidMonth
	}
	if cmd.Year < minGenerationYear || cmd.Year > maxGenerationYear {
		return result, schedule.ErrInvalidYear
	}

	var doctorIDs []uuid.UUID
	if cmd.DoctorID != nil {
		// Unknown doctor aborts before any doctor is processed.
		if _, err := s.directory.GetDoctor(ctx, *cmd.DoctorID); err != nil {
			return result, fmt.Errorf("verifying doctor: %w", err)
		}
		doctorIDs = []uuid.UUID{*cmd.DoctorID}
	} else {
		ids, err := s.availabilityRepo.DoctorIDsWithActiveRules(ctx)
		if err != nil {
			return result, fmt.Errorf("listing doctors with active rules: %w", err)
		}
		doctorIDs = ids
	}

	cache := newDurationCache(s.directory)
	for _, doctorID := range doctorIDs {
		// Each doctor's batch is independent; one doctor failing does not
		// roll back the others.
		doctorResult, err := s.generateForDoctor(ctx, doctorID, cmd.Month, cmd.Year, cache)
		if err != nil {
			s.log.Error("schedule generation failed for doctor",
				zap.String("doctor_id", doctorID.String()),
				zap.Int("month", cmd.Month),
				zap.Int("year", cmd.Year),
				zap.Error(err),
			)
			return result, err
		}
		result.Add(doctorResult)
	}

	s.metrics.SlotsGeneratedTotal.Add(float64(result.Generated))
	s.metrics.SlotsSkippedTotal.Add(float64(result.Skipped))

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "schedule_generation",
		ResourceID:   fmt.Sprintf("%04d-%02d", cmd.Year, cmd.Month),
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"generated":%d,"skipped":%d}`, result.Generated, result.Skipped),
	})

	s.log.Info("schedule generation completed",
		zap.Int("doctors", len(doctorIDs)),
		zap.Int("generated", result.Generated),
		zap.Int("skipped", result.Skipped),
	)

	return result, nil
}

func (s *ScheduleService) generateForDoctor(ctx context.Context, doctorID uuid.UUID, month, year int, cache *durationCache) (schedule.GenerationResult, error) {
	var result schedule.GenerationResult

	rules, err := s.availabilityRepo.FindActiveByDoctor(ctx, doctorID)
	if err != nil {
		return result, fmt.Errorf("loading availability rules: %w", err)
	}
	if len(rules) == 0 {
		return result, nil
	}

	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	// One query per doctor for the whole month instead of one per slot.
	existing, err := s.scheduleRepo.ListByDoctorBetween(ctx, doctorID, monthStart, monthEnd)
	if err != nil {
		return result, fmt.Errorf("loading existing schedules: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, sc := range existing {
		seen[sc.SlotKey()] = struct{}{}
	}

	var batch []*schedule.Schedule
	for date := monthStart; !date.After(monthEnd); date = date.AddDate(0, 0, 1) {
		day := domain.WeekdayOf(date)
		for _, rule := range rules {
			if rule.DayOfWeek != day || !rule.CoversDate(date) {
				continue
			}

			mins, err := cache.minutes(ctx, rule.SpecialtyID)
			if err != nil {
				return result, fmt.Errorf("resolving specialty duration: %w", err)
			}

			var slots []timeslot.Slot
			if mins > 0 {
				slots, err = timeslot.Generate(rule.TimeFrom, rule.TimeTo, time.Duration(mins)*time.Minute)
				if err != nil {
					return result, fmt.Errorf("fragmenting rule %s: %w", rule.ID, err)
				}
			} else {
				// No configured duration: the whole window is one slot.
				slots = []timeslot.Slot{{Start: rule.TimeFrom, End: rule.TimeTo}}
			}

			for _, slot := range slots {
				key := schedule.Key(date, slot.Start, slot.End)
				if _, dup := seen[key]; dup {
					result.Skipped++
					continue
				}
				seen[key] = struct{}{}
				batch = append(batch, &schedule.Schedule{
					DoctorID:     doctorID,
					SpecialtyID:  rule.SpecialtyID,
					ScheduleDate: date,
					TimeFrom:     slot.Start,
					TimeTo:       slot.End,
				})
			}
		}
	}

	if len(batch) == 0 {
		return result, nil
	}

	// The insert ignores duplicate keys, so a concurrent run for the same
	// month at worst does redundant work.
	inserted, err := s.scheduleRepo.CreateBatch(ctx, batch)
	if err != nil {
		return result, fmt.Errorf("inserting schedule batch: %w", err)
	}
	result.Generated += inserted
	result.Skipped += len(batch) - inserted

	return result, nil
}

// AvailableSlots reconstructs the theoretical slot list for a window and
// cross-references it against booked schedule state. A theoretical slot with
// no materialized schedule row reports available; callers needing a hard
// guarantee must run generation first.
func (s *ScheduleService) AvailableSlots(ctx context.Context, q *schedule.AvailableSlotsQuery) ([]schedule.AvailableSlot, error) {
	if !q.TimeFrom.Before(q.TimeTo) {
		return nil, availability.ErrInvalidTimeWindow
	}

	theoretical, err := timeslot.Generate(q.TimeFrom, q.TimeTo, time.Duration(q.DurationMins)*time.Minute)
	if err != nil {
		return nil, err
	}

	booked, err := s.scheduleRepo.ListForDay(ctx, q.DoctorID, q.SpecialtyID, q.Date)
	if err != nil {
		return nil, fmt.Errorf("loading schedules: %w", err)
	}
	occupied := make(map[string]bool, len(booked))
	for _, b := range booked {
		key := domain.FormatClock(b.TimeFrom) + "-" + domain.FormatClock(b.TimeTo)
		if b.Booked {
			occupied[key] = true
		}
	}

	out := make([]schedule.AvailableSlot, 0, len(theoretical))
	for _, t := range theoretical {
		key := domain.FormatClock(t.Start) + "-" + domain.FormatClock(t.End)
		out = append(out, schedule.AvailableSlot{
			StartTime: t.Start,
			EndTime:   t.End,
			Available: !occupied[key],
		})
	}
	return out, nil
}

// ListSchedules returns materialized slots, never reaching back before today
// in the clinic's local timezone regardless of the requested dateFrom.
func (s *ScheduleService) ListSchedules(ctx context.Context, q *schedule.ListSchedulesQuery) (*schedule.PagedSchedules, error) {
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	today := domain.DateOnly(time.Now().In(s.clinicTZ))
	if q.DateFrom == nil || q.DateFrom.Before(today) {
		q.DateFrom = &today
	}

	return s.scheduleRepo.List(ctx, q)
}

func (s *ScheduleService) GetSchedule(ctx context.Context, id uuid.UUID) (*schedule.Schedule, error) {
	return s.scheduleRepo.GetByID(ctx, id)
}
