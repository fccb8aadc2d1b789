// Package jobs holds background tasks driven by cron schedules.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/medpoint/scheduling/internal/domain/schedule"
	"github.com/medpoint/scheduling/internal/service"
)

// GenerationJob re-runs slot generation for the upcoming month on a cron
// schedule. Generation is idempotent, so overlapping runs only ever add
// slots that rule changes introduced since the last run.
type GenerationJob struct {
	svc      *service.ScheduleService
	cron     *cron.Cron
	clinicTZ *time.Location
	log      *zap.Logger
}

func NewGenerationJob(svc *service.ScheduleService, clinicTZ *time.Location, log *zap.Logger) *GenerationJob {
	return &GenerationJob{
		svc:      svc,
		cron:     cron.New(cron.WithLocation(clinicTZ)),
		clinicTZ: clinicTZ,
		log:      log,
	}
}

// Start registers the job under spec and starts the scheduler. An empty
// spec disables the job entirely; generation then happens only on demand
// through the API.
func (j *GenerationJob) Start(spec string) error {
	if spec == "" {
		j.log.Info("scheduled slot generation disabled")
		return nil
	}

	if _, err := j.cron.AddFunc(spec, j.run); err != nil {
		return err
	}
	j.cron.Start()
	j.log.Info("scheduled slot generation enabled", zap.String("cron", spec))
	return nil
}

// Stop halts the scheduler and waits for an in-flight run to finish.
func (j *GenerationJob) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *GenerationJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	next := time.Now().In(j.clinicTZ).AddDate(0, 1, 0)
	result, err := j.svc.Generate(ctx, &schedule.GenerateCommand{
		Month: int(next.Month()),
		Year:  next.Year(),
	}, uuid.Nil, "system", "")
	if err != nil {
		j.log.Error("scheduled slot generation failed",
			zap.Int("month", int(next.Month())),
			zap.Int("year", next.Year()),
			zap.Error(err))
		return
	}

	j.log.Info("scheduled slot generation finished",
		zap.Int("month", int(next.Month())),
		zap.Int("year", next.Year()),
		zap.Int("generated", result.Generated),
		zap.Int("skipped", result.Skipped))
}
