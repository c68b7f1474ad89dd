package faceHandler

import (
	faceService "PoseLogin/internal/api/face/service"
	"PoseLogin/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"time"
)

const defaultStatusPushInterval = 500 * time.Millisecond

type FaceHandler struct {
	log          *logrus.Logger
	validator    *validator.Validate
	middleware   middleware.Middleware
	faceService  faceService.IFaceService
	pushInterval time.Duration
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	fs faceService.IFaceService,
) *FaceHandler {
	return &FaceHandler{
		log:          log,
		validator:    validator,
		middleware:   middleware,
		faceService:  fs,
		pushInterval: defaultStatusPushInterval,
	}
}

func (h *FaceHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	camera := srv.Group("/camera")
	camera.Get("/stream", h.Stream)
	camera.Get("/info", h.middleware.NewRateLimiter, h.CameraInfo)

	face := srv.Group("/face")
	face.Get("/status", h.middleware.NewRateLimiter, h.Status)
	face.Post("/reset", h.middleware.NewRateLimiter, h.Reset)
	face.Get("/sequence", h.middleware.NewRateLimiter, h.Sequence)
	face.Get("/verification", h.middleware.NewRateLimiter, h.middleware.NewTokenMiddleware, h.Verification)
	face.Use("/ws", wsMiddleware, h.requireCamera)
	face.Get("/ws", websocket.New(h.handleStatusWebSocket))
}
