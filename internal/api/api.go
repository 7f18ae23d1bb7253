// Package api is the renderer's external control surface: an HTTP app the
// display UI drives to push configuration snapshots, report its surface,
// move the camera, and read composite frames.
package api

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jwbonner/advantagescope/internal/applog"
	"github.com/jwbonner/advantagescope/internal/field"
	"github.com/jwbonner/advantagescope/internal/version"
)

// defaultPushInterval is the websocket frame poll cadence.
const defaultPushInterval = 33 * time.Millisecond

// Control is the renderer surface the api drives. All methods are safe from
// any goroutine.
type Control interface {
	PushSnapshot(field.Snapshot)
	SetDisplay(field.DisplayState)
	SelectCamera(index int)
	LatestFrame() *field.SceneFrame
	AspectRatio() (float64, bool)
}

// ServerConfig holds the api server configuration.
type ServerConfig struct {
	// Address is the listen address (e.g. "localhost:8080").
	Address string

	// Control is the renderer being driven.
	Control Control

	// PushInterval is the websocket frame poll cadence. Zero selects the
	// default.
	PushInterval time.Duration

	// Log is the server logger. Nil selects the process default.
	Log *applog.Logger
}

// Server is the api application.
type Server struct {
	address      string
	control      Control
	pushInterval time.Duration
	log          *applog.Logger
	app          *fiber.App
}

// NewServer creates the api server and its routes.
func NewServer(config ServerConfig) *Server {
	log := config.Log
	if log == nil {
		log = applog.Default()
	}
	pushInterval := config.PushInterval
	if pushInterval <= 0 {
		pushInterval = defaultPushInterval
	}

	s := &Server{
		address:      config.Address,
		control:      config.Control,
		pushInterval: pushInterval,
		log:          log,
	}
	s.app = s.setupApp()
	return s
}

// setupApp builds the fiber application and mounts the routes.
func (s *Server) setupApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "fieldview api",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/frame", s.handleFrame)
	api.Get("/aspect", s.handleAspect)
	api.Post("/camera", s.handleCamera)
	api.Post("/snapshot", s.handleSnapshot)
	api.Post("/display", s.handleDisplay)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFrameSocket))

	return app
}

// Start serves the api until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		s.log.Infof("api server listening on %s", s.address)
		if err := s.app.Listen(s.address); err != nil {
			s.log.Errorf("api server: %v", err)
		}
	}()

	<-ctx.Done()
	s.log.Infof("shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		s.log.Warnf("api shutdown: %v", err)
	}
	return nil
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "service": "fieldview", "version": version.Version})
}

func (s *Server) handleFrame(c *fiber.Ctx) error {
	frame := s.control.LatestFrame()
	if frame == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no frame rendered yet"})
	}
	return c.JSON(frame)
}

// aspectResponse reports the fixed-camera aspect ratio; null in the orbit
// modes.
type aspectResponse struct {
	Aspect *float64 `json:"aspect"`
}

func (s *Server) handleAspect(c *fiber.Ctx) error {
	resp := aspectResponse{}
	if aspect, ok := s.control.AspectRatio(); ok {
		resp.Aspect = &aspect
	}
	return c.JSON(resp)
}

type cameraRequest struct {
	Index *int `json:"index"`
}

func (s *Server) handleCamera(c *fiber.Ctx) error {
	var req cameraRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Index == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "index is required"})
	}

	s.control.SelectCamera(*req.Index)
	s.log.Debugf("camera selected: %d", *req.Index)
	return c.JSON(fiber.Map{"status": "ok", "index": *req.Index})
}

func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	var snap field.Snapshot
	if err := c.BodyParser(&snap); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	s.control.PushSnapshot(snap)
	s.log.Debugf("snapshot pushed: t=%.3f field=%s robot=%s", snap.Time, snap.FieldID, snap.RobotID)
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleDisplay(c *fiber.Ctx) error {
	var d field.DisplayState
	if err := c.BodyParser(&d); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	s.control.SetDisplay(d)
	return c.JSON(fiber.Map{"status": "ok"})
}

// errorHandler renders unhandled route errors as JSON.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
