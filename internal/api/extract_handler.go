package api

import (
	"errors"
	"io"
	"time"

	"github.com/Lxiba/ResumeTruth-AI/internal/extract"
	"github.com/Lxiba/ResumeTruth-AI/internal/observability"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ExtractHandler serves the document text-extraction endpoint.
type ExtractHandler struct {
	service *extract.Service
	metrics *observability.Metrics
}

// NewExtractHandler creates the handler.
func NewExtractHandler(service *extract.Service, metrics *observability.Metrics) *ExtractHandler {
	return &ExtractHandler{service: service, metrics: metrics}
}

// Extract handles POST /api/v1/extract. The document arrives as a multipart
// "file" field; the media type comes from the part header, an optional
// "media_type" form value, or the filename extension.
func (h *ExtractHandler) Extract(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "could not read uploaded file",
		})
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "could not read uploaded file",
		})
	}

	mediaType := c.FormValue("media_type")
	if mediaType == "" {
		mediaType = fileHeader.Header.Get("Content-Type")
	}

	doc := extract.Document{
		Data:      data,
		MediaType: mediaType,
		Filename:  fileHeader.Filename,
	}

	start := time.Now()
	result, err := h.service.ExtractText(c.Context(), doc)
	if err != nil {
		h.metrics.RecordExtraction(doc.MediaType, errorStatus(err), time.Since(start), 0)
		return h.errorResponse(c, err)
	}

	h.metrics.RecordExtraction(doc.MediaType, "success", time.Since(start), result.Characters)
	return c.JSON(result)
}

// errorResponse maps the service's typed errors onto HTTP statuses. Only
// UnsupportedFormat and EmptyResult ever reach this point.
func (h *ExtractHandler) errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, extract.ErrEmptyResult):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		log.Error().Err(err).Msg("Unexpected extraction error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "extraction failed",
		})
	}
}

func errorStatus(err error) string {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, extract.ErrEmptyResult):
		return "empty_result"
	default:
		return "error"
	}
}
