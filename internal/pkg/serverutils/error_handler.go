package serverutils

import (
	"errors"

	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

const genericInternalMessage = "internal server error"

// ErrorHandler renders every error returned by a handler as the JSON error envelope.
// In production, internal faults never expose their underlying cause.
func ErrorHandler(isProd bool, log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		code, kind, message := describe(err, isProd)

		if code >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"status": code,
				"kind":   kind,
				"error":  err,
			})
		}

		return ctx.Status(code).JSON(KindErrorResponse(code, kind, message))
	}
}

func describe(err error, isProd bool) (int, string, string) {
	if appErr, ok := apperror.As(err); ok {
		message := appErr.Message
		if appErr.Kind == apperror.KindInternal {
			message = internalMessage(appErr, isProd)
		}
		return appErr.Code, string(appErr.Kind), message
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		kind := string(apperror.KindInternal)
		if fiberErr.Code < fiber.StatusInternalServerError {
			kind = string(apperror.KindValidation)
		}
		if fiberErr.Code == fiber.StatusNotFound {
			kind = "NOT_FOUND"
		}
		return fiberErr.Code, kind, fiberErr.Message
	}

	return fiber.StatusInternalServerError, string(apperror.KindInternal), internalMessage(err, isProd)
}

func internalMessage(err error, isProd bool) string {
	if isProd {
		return genericInternalMessage
	}
	if appErr, ok := apperror.As(err); ok && appErr.Err != nil {
		return appErr.Err.Error()
	}
	return err.Error()
}
