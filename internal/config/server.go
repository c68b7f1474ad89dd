package config

import (
	"PoseLogin/internal/api/face"
	faceHandler "PoseLogin/internal/api/face/handler"
	faceService "PoseLogin/internal/api/face/service"
	"PoseLogin/internal/middleware"
	"PoseLogin/pkg/metrics"
	"PoseLogin/pkg/redis"
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"time"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	faceService faceService.IFaceService
	redisServer redis.IRedis
	registry    *prometheus.Registry
	port        string
	handlers    []handler
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{port: "3000"}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.middleware == nil {
		return nil, fmt.Errorf("middleware is required")
	}
	if server.faceService == nil {
		return nil, fmt.Errorf("face service is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithMiddleware(cfg middleware.Config) ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, cfg)
		return nil
	}
}

func WithFaceService(service faceService.IFaceService) ServerOption {
	return func(s *Server) error {
		s.faceService = service
		return nil
	}
}

// WithRedisServer accepts a nil store; verifications then live in memory
// only.
func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMetrics(registry *prometheus.Registry) ServerOption {
	return func(s *Server) error {
		s.registry = registry
		return nil
	}
}

func WithPort(port string) ServerOption {
	return func(s *Server) error {
		if port == "" {
			return fmt.Errorf("port must not be empty")
		}
		s.port = port
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Face Login Domain
	faceHandlers := faceHandler.New(s.log, s.validator, s.middleware, s.faceService)

	s.handlers = append(s.handlers, faceHandlers)
}

// Router mounts the registered handlers without starting the listener.
func (s *Server) Router() *fiber.App {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	s.setupRoot()
	s.setupMetrics()

	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}
	return s.engine
}

func (s *Server) Run() error {
	return s.Router().Listen(fmt.Sprintf(":%s", s.port))
}

// Shutdown stops accepting requests, ends running streams and releases the
// camera and the store.
func (s *Server) Shutdown(timeout time.Duration) error {
	var errs []error

	if err := s.faceService.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close face service: %w", err))
	}
	if err := s.engine.ShutdownWithTimeout(timeout); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	if s.redisServer != nil {
		if err := s.redisServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (s *Server) setupRoot() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(face.RootResponse{
			Message: "Face Recognition API",
			Endpoints: map[string]string{
				"stream":       "/api/v1/camera/stream",
				"info":         "/api/v1/camera/info",
				"status":       "/api/v1/face/status",
				"reset":        "/api/v1/face/reset",
				"sequence":     "/api/v1/face/sequence",
				"status_ws":    "/api/v1/face/ws",
				"verification": "/api/v1/face/verification",
			},
		})
	})
}

func (s *Server) setupMetrics() {
	if s.registry == nil {
		return
	}
	s.engine.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(s.registry)))
}
