package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campushq/attendance-api/internal/config"
	"github.com/campushq/attendance-api/internal/database"
	"github.com/campushq/attendance-api/internal/handler"
	"github.com/campushq/attendance-api/internal/middleware"
	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
	"github.com/campushq/attendance-api/internal/router"
	"github.com/campushq/attendance-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Student{},
		&models.CourseSection{},
		&models.Enrollment{},
		&models.TimetableSlot{},
		&models.Holiday{},
		&models.AttendanceSession{},
		&models.AttendanceRecord{},
		&models.AttendanceCorrectionRequest{},
		&models.AttendanceStatistics{},
		&models.AttendanceAuditLog{},
		&models.BiometricDevice{},
		&models.DeviceSubjectMapping{},
		&models.Setting{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	slotRepo := repository.NewTimetableSlotRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	correctionRepo := repository.NewCorrectionRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	settingsService := service.NewSettingsService(settingRepo, redisClient, cfg.SettingsCacheTTL, logger)
	events := service.NewEventPublisher(natsConn, cfg.EventSubjectBase, logger)
	qrTokens := service.NewQRTokenManager(cfg.QRTokenSecret)

	lifecycleService := service.NewLifecycleService(sessionRepo, recordRepo, enrollmentRepo, settingsService, qrTokens, events, logger)
	materializerService := service.NewMaterializerService(slotRepo, holidayRepo, enrollmentRepo, sessionRepo, logger)
	sessionQueryService := service.NewSessionQueryService(sessionRepo, validate, logger)
	recordService := service.NewRecordService(recordRepo, sessionRepo, enrollmentRepo, deviceRepo, lifecycleService, settingsService, events, validate, logger)
	correctionService := service.NewCorrectionService(correctionRepo, recordRepo, sessionRepo, validate, logger)
	statisticsService := service.NewStatisticsService(recordRepo, statisticsRepo, studentRepo, settingsService, validate, logger)
	timetableService := service.NewTimetableService(slotRepo, holidayRepo, validate, logger)
	deviceService := service.NewDeviceService(deviceRepo, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SessionHandler:    handler.NewSessionHandler(sessionQueryService, materializerService, lifecycleService, recordService, logger),
		AttendanceHandler: handler.NewAttendanceHandler(recordService, logger),
		WebhookHandler:    handler.NewWebhookHandler(recordService, logger),
		CorrectionHandler: handler.NewCorrectionHandler(correctionService, logger),
		StatisticsHandler: handler.NewStatisticsHandler(statisticsService, logger),
		TimetableHandler:  handler.NewTimetableHandler(timetableService, logger),
		SettingsHandler:   handler.NewSettingsHandler(settingsService, logger),
		DeviceHandler:     handler.NewDeviceHandler(deviceService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
