package handler

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/uploads"
)

type UploadHandler struct {
	uploader *uploads.Uploader
}

func NewUploadHandler(uploader *uploads.Uploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}

// PaymentProof receives the screenshot that backs a recharge request and
// returns the URL to put on the request.
func (h *UploadHandler) PaymentProof(c *fiber.Ctx) error {
	return h.upload(c, uploads.KindPaymentProof)
}

func (h *UploadHandler) Logo(c *fiber.Ctx) error {
	return h.upload(c, uploads.KindLogo)
}

func (h *UploadHandler) Result(c *fiber.Ctx) error {
	return h.upload(c, uploads.KindResult)
}

func (h *UploadHandler) upload(c *fiber.Ctx, kind uploads.Kind) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.New(apperrors.CodeValidation, "multipart field 'file' is required")
	}

	url, err := h.uploader.Upload(c.Context(), kind, fileHeader)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}
