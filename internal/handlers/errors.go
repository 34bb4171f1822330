package handlers

import (
	"errors"

	apperrors "freshcart/internal/errors"
	"freshcart/internal/utils"
	"freshcart/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError writes err to the client. Server errors are logged with
// their cause and answered with a generic message.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		e := verr.AppError()
		return utils.Respond(c, e.Status(), fiber.Map{
			"error":  e.Message,
			"code":   e.Code,
			"fields": verr.Errors,
		})
	}

	appErr := apperrors.As(err)
	if appErr.Kind == apperrors.KindServer {
		log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return utils.AppError(c, appErr)
}

// parse decodes the body into dst and validates it.
func parse(c *fiber.Ctx, v *validation.Validator, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.ErrInvalidBody
	}
	return v.Struct(dst)
}
