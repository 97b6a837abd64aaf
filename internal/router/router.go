package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/campushq/attendance-api/internal/config"
	"github.com/campushq/attendance-api/internal/handler"
	"github.com/campushq/attendance-api/internal/middleware"
	"github.com/campushq/attendance-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SessionHandler    *handler.SessionHandler
	AttendanceHandler *handler.AttendanceHandler
	WebhookHandler    *handler.WebhookHandler
	CorrectionHandler *handler.CorrectionHandler
	StatisticsHandler *handler.StatisticsHandler
	TimetableHandler  *handler.TimetableHandler
	SettingsHandler   *handler.SettingsHandler
	DeviceHandler     *handler.DeviceHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	staff := middleware.RequireRole("admin", "faculty")
	admin := middleware.RequireRole("admin")

	if deps.SessionHandler != nil {
		sessions := api.Group("/sessions", jwtMiddleware, staff)
		deps.SessionHandler.Register(sessions)
	}

	if deps.AttendanceHandler != nil {
		attendance := api.Group("/attendance", jwtMiddleware)
		marking := attendance.Group("", staff)
		deps.AttendanceHandler.Register(marking)

		// Self check-in is the one marking path students may call.
		checkIn := attendance.Group("", middleware.RequireRole("student"))
		deps.AttendanceHandler.RegisterCheckIn(checkIn)
	}

	if deps.WebhookHandler != nil {
		webhooks := api.Group("/webhooks",
			jwtMiddleware,
			middleware.RequireRole("device", "admin"),
			middleware.RateLimit("webhook", cfg.WebhookRateMax, time.Minute),
		)
		deps.WebhookHandler.Register(webhooks)
	}

	if deps.CorrectionHandler != nil {
		corrections := api.Group("/corrections", jwtMiddleware, staff)
		deps.CorrectionHandler.Register(corrections)

		// Students may file requests; the service enforces that they
		// only touch their own record.
		create := api.Group("/corrections", jwtMiddleware, middleware.RequireRole("admin", "faculty", "student"))
		deps.CorrectionHandler.RegisterCreate(create)

		// Faculty decide too; session ownership is enforced in the
		// service.
		decide := api.Group("/corrections", jwtMiddleware, staff)
		deps.CorrectionHandler.RegisterDecide(decide)
	}

	if deps.StatisticsHandler != nil {
		statistics := api.Group("/statistics", jwtMiddleware, middleware.RequireRole("admin", "faculty", "student"))
		deps.StatisticsHandler.Register(statistics)
	}

	if deps.TimetableHandler != nil {
		timetable := api.Group("/timetable", jwtMiddleware, admin)
		deps.TimetableHandler.Register(timetable)

		calendar := api.Group("/calendar", jwtMiddleware, admin)
		deps.TimetableHandler.RegisterCalendar(calendar)
	}

	if deps.SettingsHandler != nil {
		settings := api.Group("/settings", jwtMiddleware, admin)
		deps.SettingsHandler.Register(settings)
	}

	if deps.DeviceHandler != nil {
		devices := api.Group("/devices", jwtMiddleware, admin)
		deps.DeviceHandler.Register(devices)
	}
}
