package faceHandler

import (
	"PoseLogin/internal/api/face"
	"PoseLogin/internal/entity"
	contextPkg "PoseLogin/pkg/context"
	"PoseLogin/pkg/handlerUtil"
	jwtPkg "PoseLogin/pkg/jwt"
	"PoseLogin/pkg/log"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
	"time"
)

const requestTimeout = 5 * time.Second

func (h *FaceHandler) CameraInfo(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	info, err := h.faceService.CameraInfo()
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "camera_info")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, info)
}

func (h *FaceHandler) Status(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	status, err := h.faceService.Status(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_status")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, toStatusResponse(status))
}

func (h *FaceHandler) Reset(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	if err := h.faceService.Reset(c); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "reset_session")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Info("Login session reset by client")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, face.ResetResponse{
		Message: "Login process reset successfully",
	})
}

func (h *FaceHandler) Sequence(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	labels, hold, err := h.faceService.Sequence()
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_sequence")
	}

	names := make([]string, len(labels))
	for i, label := range labels {
		names[i] = string(label)
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, face.SequenceResponse{
		Sequence: names,
		HoldTime: hold.Seconds(),
	})
}

func (h *FaceHandler) Verification(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	claims, err := jwtPkg.GetVerificationClaims(ctx)
	if err != nil {
		return errHandler.Handle(ctx, requestID, face.ErrInvalidToken, ctx.Path(), "get_claims")
	}

	v, err := h.faceService.Verification(c, claims.VerificationID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_verification")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, face.VerificationResponse{
			VerificationID: v.ID,
			Steps:          v.Steps,
			CompletedAt:    v.CompletedAt,
			ExpiresAt:      v.ExpiresAt,
		})
	}
}

func toStatusResponse(status entity.SessionStatus) face.StatusResponse {
	resp := face.StatusResponse{
		CurrentStep:         status.CurrentStep,
		TotalSteps:          status.TotalSteps,
		CurrentPoseRequired: status.RequiredPose,
		LoginFinished:       status.Finished,
		ProgressPercentage:  status.ProgressPercentage,
	}
	if status.Verification != nil {
		resp.VerificationID = status.Verification.ID
		resp.Token = status.VerificationToken
		expires := status.Verification.ExpiresAt
		resp.TokenExpiresAt = &expires
	}
	return resp
}
