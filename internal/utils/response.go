package utils

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every handler returns. Success is always
// present so clients can branch without inspecting the status code.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
}

// SendSuccess writes a 200 response with the standard envelope.
func SendSuccess(c *fiber.Ctx, message string, data any) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus writes a success envelope with the given status,
// used by create endpoints that answer 201.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data any) error {
	if message == "" {
		message = "success"
	}
	if status == 0 {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// SendError writes a failure envelope. Data is omitted so error bodies
// stay uniform across handlers.
func SendError(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(APIResponse{
		Success: false,
		Message: message,
	})
}
