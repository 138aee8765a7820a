// Package api serves the medicine tracker over HTTP and a websocket feed
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/config"
	"github.com/gmsas95/medreminder/internal/leaflet"
	"github.com/gmsas95/medreminder/internal/metrics"
	"github.com/gmsas95/medreminder/internal/notify"
	"github.com/gmsas95/medreminder/internal/prefs"
	"github.com/gmsas95/medreminder/internal/reminder"
	"github.com/gmsas95/medreminder/internal/tracker"
)

// Version is reported by the health endpoint
var Version = "dev"

// Deps are the services the API exposes
type Deps struct {
	Tracker   *tracker.Service
	Scheduler *reminder.Scheduler
	Registry  reminder.Registry
	Profiles  *prefs.ProfileStore
	Language  *prefs.LanguageStore
	Leaflets  *leaflet.Service
	Hub       *notify.Hub
	Metrics   *metrics.Metrics
}

// Server handles HTTP API and WebSocket
type Server struct {
	app       *fiber.App
	config    *config.Config
	tracker   *tracker.Service
	scheduler *reminder.Scheduler
	registry  reminder.Registry
	profiles  *prefs.ProfileStore
	language  *prefs.LanguageStore
	leaflets  *leaflet.Service
	hub       *notify.Hub
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// New creates a new API server
func New(cfg *config.Config, deps Deps, logger *zap.Logger) *Server {
	readTimeout := time.Duration(cfg.Server.ReadTimeout) * time.Second
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := time.Duration(cfg.Server.WriteTimeout) * time.Second
	if writeTimeout == 0 {
		// leaflet generation can take most of a minute
		writeTimeout = cfg.LeafletTimeout() + 10*time.Second
	}

	app := fiber.New(fiber.Config{
		AppName:               "medreminder",
		ReadTimeout:           readTimeout,
		WriteTimeout:          writeTimeout,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
	})

	s := &Server{
		app:       app,
		config:    cfg,
		tracker:   deps.Tracker,
		scheduler: deps.Scheduler,
		registry:  deps.Registry,
		profiles:  deps.Profiles,
		language:  deps.Language,
		leaflets:  deps.Leaflets,
		hub:       deps.Hub,
		metrics:   deps.Metrics,
		logger:    logger,
	}

	s.setupRoutes()
	return s
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	s.logger.Info("HTTP server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}
