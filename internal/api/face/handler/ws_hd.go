package faceHandler

import (
	"PoseLogin/pkg/handlerUtil"
	"PoseLogin/pkg/log"
	"context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"time"
)

func (h *FaceHandler) requireCamera(ctx *fiber.Ctx) error {
	if _, err := h.faceService.CameraInfo(); err != nil {
		errHandler := handlerUtil.New(h.log)
		return errHandler.Handle(ctx, h.middleware.GetRequestID(ctx), err, ctx.Path(), "status_ws")
	}
	return ctx.Next()
}

// handleStatusWebSocket pushes the session status until the client leaves.
func (h *FaceHandler) handleStatusWebSocket(c *websocket.Conn) {
	defer c.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pushInterval)
	defer ticker.Stop()

	for {
		if err := h.pushStatus(c); err != nil {
			h.log.WithFields(log.Fields{
				"error": err.Error(),
			}).Debug("Status websocket closed")
			return
		}

		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

func (h *FaceHandler) pushStatus(c *websocket.Conn) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	status, err := h.faceService.Status(ctx)
	if err != nil {
		return err
	}

	if err := c.SetWriteDeadline(time.Now().Add(requestTimeout)); err != nil {
		return err
	}
	return c.WriteJSON(toStatusResponse(status))
}
