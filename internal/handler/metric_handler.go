package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/persona-labs/persona-api/internal/dto"
	"github.com/persona-labs/persona-api/internal/service"
	"github.com/persona-labs/persona-api/internal/utils"
)

// MetricHandler wires metric catalog admin endpoints.
type MetricHandler struct {
	service service.MetricService
	logger  zerolog.Logger
}

// NewMetricHandler constructs the handler.
func NewMetricHandler(service service.MetricService, logger zerolog.Logger) *MetricHandler {
	return &MetricHandler{
		service: service,
		logger:  logger.With().Str("component", "metric_handler").Logger(),
	}
}

// Register attaches metric catalog routes to the router group.
func (h *MetricHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *MetricHandler) create(c *fiber.Ctx) error {
	var payload dto.MetricCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	metric, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to create metric")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "metric created", metric)
}

func (h *MetricHandler) list(c *fiber.Ctx) error {
	if raw := strings.TrimSpace(c.Query("baseTestId")); raw != "" {
		baseTestID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid base test filter")
		}

		metrics, err := h.service.ListByBaseTest(c.Context(), uint(baseTestID))
		if err != nil {
			return handleError(c, h.logger, err, "failed to list metrics")
		}

		return utils.SendSuccess(c, "metrics retrieved", metrics)
	}

	metrics, err := h.service.List(c.Context())
	if err != nil {
		return handleError(c, h.logger, err, "failed to list metrics")
	}

	return utils.SendSuccess(c, "metrics retrieved", metrics)
}

func (h *MetricHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	metric, err := h.service.Get(c.Context(), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to fetch metric")
	}

	return utils.SendSuccess(c, "metric retrieved", metric)
}

func (h *MetricHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.MetricUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	metric, err := h.service.Update(c.Context(), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to update metric")
	}

	return utils.SendSuccess(c, "metric updated", metric)
}

func (h *MetricHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return handleError(c, h.logger, err, "failed to delete metric")
	}

	return utils.SendSuccess(c, "metric deleted", fiber.Map{"id": id})
}
