package faceHandler

import (
	"PoseLogin/pkg/handlerUtil"
	"PoseLogin/pkg/log"
	"PoseLogin/pkg/stream"
	"bufio"
	"github.com/gofiber/fiber/v2"
)

// Stream answers with a multipart/x-mixed-replace body of annotated JPEG
// frames. The status line is decided before the body starts, so a busy or
// missing camera still gets a proper error response.
func (h *FaceHandler) Stream(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	release, err := h.faceService.BeginStream()
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "begin_stream")
	}

	ctx.Set(fiber.HeaderContentType, stream.ContentType)
	ctx.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Status(fiber.StatusOK)

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer release()

		err := h.faceService.RunStream(func(chunk []byte) error {
			if _, err := w.Write(chunk); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			h.log.WithFields(log.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Camera stream stopped with error")
		}
	})

	return nil
}
