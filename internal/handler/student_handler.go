package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/persona-labs/persona-api/internal/dto"
	"github.com/persona-labs/persona-api/internal/service"
	"github.com/persona-labs/persona-api/internal/utils"
)

// StudentHandler wires the student registry endpoints.
type StudentHandler struct {
	students service.StudentService
	attempts service.AttemptService
	logger   zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(students service.StudentService, attempts service.AttemptService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		students: students,
		attempts: attempts,
		logger:   logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches student registry routes to the router group.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Get("/:id/attempts", h.listAttempts)
}

func (h *StudentHandler) create(c *fiber.Ctx) error {
	var payload dto.StudentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.students.Create(c.Context(), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to register student")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student registered", student)
}

func (h *StudentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	student, err := h.students.Get(c.Context(), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to fetch student")
	}

	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *StudentHandler) listAttempts(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	attempts, err := h.attempts.ListByStudent(c.Context(), principalFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list attempts")
	}

	return utils.SendSuccess(c, "attempts retrieved", attempts)
}
