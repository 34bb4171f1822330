// Package routes maps URLs to handlers and attaches the middleware each
// group needs.
package routes

import (
	"freshcart/internal/config"
	apperrors "freshcart/internal/errors"
	"freshcart/internal/handlers"
	"freshcart/internal/middleware"
	"freshcart/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var errTooManyRequests = apperrors.RateLimit("TOO_MANY_REQUESTS", "Too many requests. Please try again later.")

// Handlers groups everything SetupRoutes mounts.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Customer *handlers.CustomerAuthHandler
	Health   *handlers.HealthHandler
}

// SetupRoutes registers every route on app.
func SetupRoutes(app *fiber.App, h Handlers, authMW *middleware.AuthMiddleware, cfg config.ServerConfig) {
	app.Get("/health", h.Health.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Credential endpoints share a per-IP budget.
	loginLimiter := limiter.New(limiter.Config{
		Max:        cfg.LoginRateLimit,
		Expiration: cfg.LoginRateTTL,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.AppError(c, errTooManyRequests)
		},
	})

	api := app.Group("/api")

	shop := api.Group("/auth")
	shop.Post("/register", loginLimiter, h.Auth.Register)
	shop.Get("/verify_email/:token", h.Auth.VerifyEmail)
	shop.Post("/resend_verification", loginLimiter, h.Auth.ResendVerification)
	shop.Post("/login", loginLimiter, h.Auth.Login)
	shop.Post("/validate_otp", loginLimiter, h.Auth.ValidateOTP)
	shop.Post("/resend_otp", loginLimiter, h.Auth.ResendOTP)
	shop.Get("/block_account/:token", h.Auth.BlockAccount)
	shop.Get("/session", authMW.RequireShopOwner(), h.Auth.Session)

	shopSecure := shop.Group("/secure", authMW.RequireShopRefresh())
	shopSecure.Post("/refresh_token", h.Auth.RefreshToken)
	shopSecure.Post("/logout", h.Auth.Logout)

	cust := api.Group("/custAuth")
	cust.Post("/customer-register", loginLimiter, h.Customer.Register)
	cust.Post("/customer-login", loginLimiter, h.Customer.Login)
	cust.Post("/google", loginLimiter, h.Customer.GoogleAuth)
	cust.Get("/verify-email/:token", h.Customer.VerifyEmail)
	cust.Post("/customer-forgot-password", loginLimiter, h.Customer.ForgotPassword)
	cust.Post("/customer-reset-password", loginLimiter, h.Customer.ResetPassword)
	cust.Post("/change-password", authMW.RequireCustomer(), h.Customer.ChangePassword)
	cust.Delete("/delete-account", authMW.RequireCustomer(), h.Customer.DeleteAccount)
	cust.Get("/session", authMW.RequireCustomer(), h.Customer.Session)

	custSecure := cust.Group("/secure")
	custSecure.Post("/customer-refresh-token", h.Customer.RefreshToken)
	custSecure.Post("/customer-logout", h.Customer.Logout)
}
