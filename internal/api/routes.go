package api

import (
	"strings"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
)

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Security.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	s.app.Use(s.metricsMiddleware())

	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))

	api := s.app.Group("/api")

	api.Post("/auth/login", s.handleLogin)

	protected := api.Use(s.authMiddleware())

	protected.Get("/medicines", s.handleListMedicines)
	protected.Post("/medicines", s.handleAddMedicine)
	protected.Get("/medicines/:id", s.handleGetMedicine)
	protected.Put("/medicines/:id", s.handleEditMedicine)
	protected.Delete("/medicines/:id", s.handleDeleteMedicine)
	protected.Post("/medicines/:id/reminders", s.handleScheduleReminders)
	protected.Delete("/medicines/:id/reminders", s.handleCancelReminders)

	protected.Get("/notifications", s.handleListNotifications)
	protected.Post("/permissions", s.handleRequestPermissions)

	protected.Get("/profile", s.handleGetProfile)
	protected.Put("/profile", s.handleSetProfile)
	protected.Delete("/profile", s.handleClearProfile)

	protected.Get("/language", s.handleGetLanguage)
	protected.Put("/language", s.handleSetLanguage)
	protected.Post("/language/toggle", s.handleToggleLanguage)

	protected.Post("/leaflet", s.handleLeaflet)

	s.app.Use("/ws", s.websocketUpgrade())
	s.app.Get("/ws", websocket.New(s.handleWebSocket))
}
