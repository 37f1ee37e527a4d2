package serverutils

import "github.com/gofiber/fiber/v2"

func SuccessResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"status": "success",
		"data":   data,
	}
}

func ErrorResponse(code int, message string) fiber.Map {
	return fiber.Map{
		"status":  "error",
		"code":    code,
		"message": message,
	}
}

// ErrorHandlerMiddleware converts panics and unhandled errors into a JSON
// error body. The ingress must never take the host app down with it.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				_ = ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(500, "internal error"))
			}
		}()
		return ctx.Next()
	}
}
