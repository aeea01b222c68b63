package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/persona-labs/persona-api/internal/dto"
	"github.com/persona-labs/persona-api/internal/service"
	"github.com/persona-labs/persona-api/internal/utils"
)

// AttemptHandler wires the student attempt endpoints.
type AttemptHandler struct {
	service service.AttemptService
	logger  zerolog.Logger
}

// NewAttemptHandler constructs the handler.
func NewAttemptHandler(service service.AttemptService, logger zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		service: service,
		logger:  logger.With().Str("component", "attempt_handler").Logger(),
	}
}

// Register attaches attempt routes to the router group.
func (h *AttemptHandler) Register(router fiber.Router) {
	router.Post("", h.start)
	router.Get("", h.listMine)
	router.Get("/:id", h.get)
	router.Get("/:id/answers", h.listAnswers)
	router.Put("/:id/answers", h.submitAnswer)
	router.Post("/:id/finalize", h.finalize)
}

func (h *AttemptHandler) start(c *fiber.Ctx) error {
	var payload dto.AttemptStartRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	attempt, err := h.service.Start(c.Context(), principalFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to start attempt")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attempt started", attempt)
}

func (h *AttemptHandler) listMine(c *fiber.Ctx) error {
	principal := principalFromContext(c)

	attempts, err := h.service.ListByStudent(c.Context(), principal, principal.UserID)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list attempts")
	}

	return utils.SendSuccess(c, "attempts retrieved", attempts)
}

func (h *AttemptHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	attempt, err := h.service.Get(c.Context(), principalFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to fetch attempt")
	}

	return utils.SendSuccess(c, "attempt retrieved", attempt)
}

func (h *AttemptHandler) listAnswers(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	answers, err := h.service.ListAnswers(c.Context(), principalFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list answers")
	}

	return utils.SendSuccess(c, "answers retrieved", answers)
}

func (h *AttemptHandler) submitAnswer(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.AnswerSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	answer, err := h.service.SubmitAnswer(c.Context(), principalFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to submit answer")
	}

	return utils.SendSuccess(c, "answer recorded", answer)
}

func (h *AttemptHandler) finalize(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	evaluation, err := h.service.Finalize(c.Context(), principalFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to finalize attempt")
	}

	return utils.SendSuccess(c, "attempt finalized", evaluation)
}
