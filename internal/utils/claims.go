package utils

import (
	"errors"

	"freshcart/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ClaimsKey is the fiber.Locals key the auth middleware stores claims under.
const ClaimsKey = "claims"

// GetClaims extracts the verified claims from the Fiber context.
// It returns an error if the claims are missing or of an invalid type.
func GetClaims(c *fiber.Ctx) (*models.AuthClaims, error) {
	v := c.Locals(ClaimsKey)
	if v == nil {
		return nil, errors.New("claims not found in context")
	}

	claims, ok := v.(*models.AuthClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}
