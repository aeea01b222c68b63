package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/persona-labs/persona-api/internal/dto"
	"github.com/persona-labs/persona-api/internal/service"
	"github.com/persona-labs/persona-api/internal/utils"
)

// BaseTestHandler wires test family endpoints.
type BaseTestHandler struct {
	service service.BaseTestService
	catalog service.CatalogService
	logger  zerolog.Logger
}

// NewBaseTestHandler constructs the handler.
func NewBaseTestHandler(service service.BaseTestService, catalog service.CatalogService, logger zerolog.Logger) *BaseTestHandler {
	return &BaseTestHandler{
		service: service,
		catalog: catalog,
		logger:  logger.With().Str("component", "base_test_handler").Logger(),
	}
}

// Register attaches family admin routes to the router group.
func (h *BaseTestHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

// RegisterCatalog attaches the student-facing active version lookup.
func (h *BaseTestHandler) RegisterCatalog(router fiber.Router) {
	router.Get("/:id/active-test", h.activeTest)
}

func (h *BaseTestHandler) create(c *fiber.Ctx) error {
	var payload dto.BaseTestCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	family, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to create base test")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "base test created", family)
}

func (h *BaseTestHandler) list(c *fiber.Ctx) error {
	families, err := h.service.List(c.Context())
	if err != nil {
		return handleError(c, h.logger, err, "failed to list base tests")
	}

	return utils.SendSuccess(c, "base tests retrieved", families)
}

func (h *BaseTestHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	family, err := h.service.Get(c.Context(), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to fetch base test")
	}

	return utils.SendSuccess(c, "base test retrieved", family)
}

func (h *BaseTestHandler) activeTest(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	test, err := h.catalog.GetActiveTest(c.Context(), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to resolve active test")
	}

	return utils.SendSuccess(c, "active test retrieved", test)
}
