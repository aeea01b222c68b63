package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/persona-labs/persona-api/internal/middleware"
	"github.com/persona-labs/persona-api/internal/service"
	"github.com/persona-labs/persona-api/internal/utils"
)

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := c.Params(name)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func principalFromContext(c *fiber.Ctx) service.Principal {
	return service.Principal{
		UserID: userIDFromContext(c),
		Role:   userRoleFromContext(c),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// handleError maps service sentinels onto HTTP statuses. Unknown errors
// are logged and masked as 500s so internals never leak to clients.
func handleError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrBaseTestNotFound),
		errors.Is(err, service.ErrTestNotFound),
		errors.Is(err, service.ErrSectionNotFound),
		errors.Is(err, service.ErrQuestionNotFound),
		errors.Is(err, service.ErrSubQuestionNotFound),
		errors.Is(err, service.ErrMetricNotFound),
		errors.Is(err, service.ErrAttemptNotFound),
		errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrNoActiveVersion):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAttemptForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrEmptyTest),
		errors.Is(err, service.ErrAnswerTypeMismatch),
		errors.Is(err, service.ErrScaleOutOfRange),
		isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrTestPublished),
		errors.Is(err, service.ErrTestNotPublished),
		errors.Is(err, service.ErrPublishConflict),
		errors.Is(err, service.ErrSourceNotPublished),
		errors.Is(err, service.ErrTestNotAvailable),
		errors.Is(err, service.ErrAttemptFinalized),
		errors.Is(err, service.ErrMetricInUse),
		errors.Is(err, service.ErrMetricCodeTaken),
		errors.Is(err, service.ErrCrossFamilyMetric),
		errors.Is(err, service.ErrQuestionHasAnswers),
		errors.Is(err, service.ErrSectionHasAnswers),
		errors.Is(err, service.ErrSectionNotInTest),
		errors.Is(err, service.ErrQuestionNotInTest),
		errors.Is(err, service.ErrSubQuestionMismatch),
		errors.Is(err, service.ErrVersionFamilyMismatch):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
