package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/campushq/attendance-api/internal/config"
	"github.com/campushq/attendance-api/internal/database"
	"github.com/campushq/attendance-api/internal/dto"
	"github.com/campushq/attendance-api/internal/observability"
	"github.com/campushq/attendance-api/internal/repository"
	"github.com/campushq/attendance-api/internal/service"
)

// The worker owns the time-driven side of the attendance lifecycle:
// opening and closing sessions around their windows, materializing the
// next day's sessions, refreshing statistics rollups and enforcing the
// retention horizon. It shares no state with the API beyond the database,
// so both can be scaled and restarted independently.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "worker").Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName+" worker")
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	slotRepo := repository.NewTimetableSlotRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	settingsService := service.NewSettingsService(settingRepo, redisClient, cfg.SettingsCacheTTL, logger)
	events := service.NewEventPublisher(natsConn, cfg.EventSubjectBase, logger)
	qrTokens := service.NewQRTokenManager(cfg.QRTokenSecret)

	lifecycle := service.NewLifecycleService(sessionRepo, recordRepo, enrollmentRepo, settingsService, qrTokens, events, logger)
	materializer := service.NewMaterializerService(slotRepo, holidayRepo, enrollmentRepo, sessionRepo, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())
	statisticsService := service.NewStatisticsService(recordRepo, statisticsRepo, studentRepo, settingsService, validate, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runSweeps(ctx, cfg.SweepInterval, lifecycle, logger)
	go runNightly(ctx, materializer, statisticsService, lifecycle, logger)

	<-ctx.Done()
	logger.Info().Msg("worker stopped")
}

// runSweeps drives the auto-open and auto-close transitions on a short
// interval so sessions track their scheduled windows.
func runSweeps(ctx context.Context, interval time.Duration, lifecycle service.LifecycleService, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observeSweep("auto_open", func() {
				if opened, err := lifecycle.AutoOpenSweep(ctx); err != nil {
					logger.Error().Err(err).Msg("auto-open sweep failed")
				} else if opened > 0 {
					logger.Info().Int("opened", opened).Msg("auto-open sweep completed")
				}
			})
			observeSweep("auto_close", func() {
				if closed, err := lifecycle.AutoCloseSweep(ctx); err != nil {
					logger.Error().Err(err).Msg("auto-close sweep failed")
				} else if closed > 0 {
					logger.Info().Int("closed", closed).Msg("auto-close sweep completed")
				}
			})
		}
	}
}

// runNightly executes the daily jobs once at startup and then every 24h:
// materialize the upcoming week, refresh rollups, apply retention.
func runNightly(ctx context.Context, materializer service.MaterializerService, statistics service.StatisticsService, lifecycle service.LifecycleService, logger zerolog.Logger) {
	run := func() {
		observeSweep("materialize", func() {
			start := time.Now().UTC()
			end := start.AddDate(0, 0, 7)
			if created, err := materializer.GenerateSessions(ctx, start, end, nil); err != nil {
				logger.Error().Err(err).Msg("nightly materialization failed")
			} else {
				logger.Info().Int("created", created).Msg("nightly materialization completed")
			}
		})
		observeSweep("statistics", func() {
			if updated, err := statistics.Recompute(ctx, dto.RecomputeRequest{}); err != nil {
				logger.Error().Err(err).Msg("nightly statistics recompute failed")
			} else {
				logger.Info().Int("updated", updated).Msg("nightly statistics recompute completed")
			}
		})
		observeSweep("retention", func() {
			if removed, err := lifecycle.CleanupOldData(ctx); err != nil {
				logger.Error().Err(err).Msg("retention cleanup failed")
			} else if removed > 0 {
				logger.Info().Int64("removed", removed).Msg("retention cleanup completed")
			}
		})
	}

	run()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func observeSweep(job string, fn func()) {
	start := time.Now()
	fn()
	observability.SweepDuration().WithLabelValues(job).Observe(time.Since(start).Seconds())
}
