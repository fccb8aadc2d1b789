package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/medpoint/scheduling/internal/config"
	v1 "github.com/medpoint/scheduling/internal/handler/v1"
	"github.com/medpoint/scheduling/internal/jobs"
	"github.com/medpoint/scheduling/internal/repository/postgres"
	"github.com/medpoint/scheduling/internal/service"
	"github.com/medpoint/scheduling/pkg/auth"
	"github.com/medpoint/scheduling/pkg/database"
	"github.com/medpoint/scheduling/pkg/logger"
	"github.com/medpoint/scheduling/pkg/metrics"
	"github.com/medpoint/scheduling/pkg/tracer"
)

func main() {
	// Missing .env is fine in containerized deployments.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer log.Sync() //nolint:errcheck

	if cfg.Tracing.Enabled {
		tp, err := tracer.Init(cfg.Tracing)
		if err != nil {
			log.Fatal("tracer init failed", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Warn("tracer shutdown", zap.Error(err))
			}
		}()
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}
	if err := database.Migrate(db, log); err != nil {
		log.Fatal("database migrate failed", zap.Error(err))
	}

	clinicTZ, err := cfg.Clinic.Location()
	if err != nil {
		log.Fatal("invalid clinic timezone", zap.Error(err))
	}

	collector := metrics.NewCollector(cfg.App.Name)
	verifier := auth.NewJWTVerifier(cfg.JWT)

	availabilityRepo := postgres.NewAvailabilityRepository(db)
	scheduleRepo := postgres.NewScheduleRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	prescriptionRepo := postgres.NewPrescriptionRepository(db)
	directoryRepo := postgres.NewDirectoryRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	auditSvc := service.NewAuditService(auditRepo, log)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, directoryRepo, auditSvc, log)
	scheduleSvc := service.NewScheduleService(scheduleRepo, availabilityRepo, directoryRepo, collector, clinicTZ, auditSvc, log)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, scheduleRepo, prescriptionRepo, directoryRepo, collector, auditSvc, log)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	v1.RegisterRoutes(engine, v1.Handlers{
		Availability: v1.NewAvailabilityHandler(availabilitySvc),
		Schedule:     v1.NewScheduleHandler(scheduleSvc),
		Appointment:  v1.NewAppointmentHandler(appointmentSvc),
	}, cfg, verifier, collector, log)

	generationJob := jobs.NewGenerationJob(scheduleSvc, clinicTZ, log)
	if err := generationJob.Start(cfg.Generation.CronSpec); err != nil {
		log.Fatal("generation job start failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("server listening",
			zap.String("address", srv.Addr),
			zap.String("environment", cfg.App.Environment),
			zap.String("version", cfg.App.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}

	generationJob.Stop()
	auditSvc.Shutdown()

	sqlDB, err := db.DB()
	if err == nil {
		_ = sqlDB.Close()
	}

	log.Info("stopped")
}
