// Package middleware provides the fiber middleware that guards
// authenticated routes.
package middleware

import (
	"strings"

	apperrors "freshcart/internal/errors"
	"freshcart/internal/models"
	"freshcart/internal/services/auth"
	"freshcart/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RefreshTokenKey is the fiber.Locals key holding the raw refresh token
// once RequireShopRefresh has accepted it.
const RefreshTokenKey = "refreshToken"

// AuthMiddleware verifies session tokens from cookies or a Bearer header
// and stores the claims in the request context.
type AuthMiddleware struct {
	tokens *utils.TokenManager
	shop   auth.Service
	logger *zap.Logger
}

func NewAuthMiddleware(tokens *utils.TokenManager, shop auth.Service, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		shop:   shop,
		logger: logger,
	}
}

// RequireShopOwner accepts a shop-owner access token.
func (m *AuthMiddleware) RequireShopOwner() fiber.Handler {
	return m.requireAccess(utils.CookieAccess, models.PrincipalShopOwner)
}

// RequireCustomer accepts a customer access token.
func (m *AuthMiddleware) RequireCustomer() fiber.Handler {
	return m.requireAccess(utils.CookieCustAccess, models.PrincipalCustomer)
}

func (m *AuthMiddleware) requireAccess(cookie string, principal models.Principal) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerOrCookie(c, cookie)
		if raw == "" {
			return utils.AppError(c, apperrors.ErrUnauthorized)
		}

		claims, err := m.tokens.Parse(raw, models.PurposeAccess)
		if err != nil {
			m.logger.Debug("access token rejected", zap.String("path", c.Path()), zap.Error(err))
			return utils.AppError(c, apperrors.ErrUnauthorized)
		}
		if claims.Principal != principal {
			return utils.AppError(c, apperrors.ErrUnauthorized)
		}

		c.Locals(utils.ClaimsKey, claims)
		return c.Next()
	}
}

// RequireShopRefresh validates the shop refresh cookie against its stored
// hash. The claims and the raw token are passed on to the handler.
func (m *AuthMiddleware) RequireShopRefresh() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(utils.CookieRefresh)
		claims, err := m.shop.ValidateRefresh(c.UserContext(), raw)
		if err != nil {
			appErr := apperrors.As(err)
			if appErr.Kind == apperrors.KindServer {
				m.logger.Error("refresh validation failed", zap.Error(err))
			}
			return utils.AppError(c, appErr)
		}

		c.Locals(utils.ClaimsKey, claims)
		c.Locals(RefreshTokenKey, raw)
		return c.Next()
	}
}

func bearerOrCookie(c *fiber.Ctx, cookie string) string {
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Cookies(cookie)
}
