package handlers

import (
	apperrors "freshcart/internal/errors"
	"freshcart/internal/middleware"
	"freshcart/internal/models"
	"freshcart/internal/services/auth"
	"freshcart/internal/utils"
	"freshcart/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler serves the shop-owner routes under /api/auth.
type AuthHandler struct {
	authService auth.Service
	validator   *validation.Validator
	cookies     cookieJar
	logger      *zap.Logger
}

func NewAuthHandler(authService auth.Service, v *validation.Validator, secureCookies bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   v,
		cookies:     cookieJar{secure: secureCookies},
		logger:      logger,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.ShopRegisterRequest
	if err := parse(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	owner, err := h.authService.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Created(c, fiber.Map{
		"message": "Registration successful. Check your email to verify the account.",
		"storeId": owner.StoreID,
	})
}

func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	if err := h.authService.VerifyEmail(c.UserContext(), c.Params("token")); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Message(c, "Email verified. Your login code has been sent to your inbox.")
}

func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	var req models.ForgotPasswordRequest
	if err := parse(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.authService.ResendVerification(c.UserContext(), req.Email); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Message(c, "If the account exists and is not verified, a new link has been sent.")
}

// Login runs both validation steps. On success the OTP is on its way and
// no session exists yet.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.ShopLoginRequest
	if err := parse(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	err := h.authService.Login(c.UserContext(), auth.LoginInput{
		StoreID:   req.StoreID,
		Code:      req.Code,
		Password:  req.Password,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Device: models.DeviceKey{
			DeviceID:     req.DeviceID,
			BrowserToken: req.BrowserToken,
		},
		IP: c.IP(),
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Message(c, "OTP sent to your registered email.")
}

func (h *AuthHandler) ValidateOTP(c *fiber.Ctx) error {
	var req models.ValidateOTPRequest
	if err := parse(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	session, err := h.authService.ValidateOTP(c.UserContext(), req.StoreID, req.OTP)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	h.cookies.setShopSession(c, session)
	return utils.Success(c, fiber.Map{
		"message": "Login successful",
		"storeId": session.StoreID,
		"name":    session.Name,
	})
}

func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	var req models.StoreIDRequest
	if err := parse(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.authService.ResendOTP(c.UserContext(), req.StoreID); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Message(c, "A new OTP has been sent.")
}

func (h *AuthHandler) BlockAccount(c *fiber.Ctx) error {
	already, err := h.authService.BlockAccount(c.UserContext(), c.Params("token"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if already {
		return utils.Message(c, "Account is already blocked.")
	}
	return utils.Message(c, "Account blocked. Contact support to restore access.")
}

// RefreshToken runs behind middleware.RequireShopRefresh.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	claims, err := utils.GetClaims(c)
	if err != nil {
		return respondError(c, h.logger, apperrors.ErrInvalidRefresh)
	}
	raw, _ := c.Locals(middleware.RefreshTokenKey).(string)

	session, err := h.authService.RefreshToken(c.UserContext(), claims, raw)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindAuthentication) {
			h.cookies.clearShopSession(c)
		}
		return respondError(c, h.logger, err)
	}
	h.cookies.setShopSession(c, session)
	return utils.Message(c, "Token refreshed")
}

// Logout runs behind middleware.RequireShopRefresh.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, err := utils.GetClaims(c)
	if err != nil {
		return respondError(c, h.logger, apperrors.ErrInvalidRefresh)
	}
	if err := h.authService.Logout(c.UserContext(), claims); err != nil {
		return respondError(c, h.logger, err)
	}
	h.cookies.clearShopSession(c)
	return utils.Message(c, "Logged out successfully")
}

// Session returns the signed-in owner. Runs behind RequireShopOwner.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	claims, err := utils.GetClaims(c)
	if err != nil {
		return respondError(c, h.logger, apperrors.ErrUnauthorized)
	}
	owner, err := h.authService.GetProfile(c.UserContext(), claims.Subject)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, fiber.Map{
		"storeId":       owner.StoreID,
		"name":          owner.Name,
		"email":         owner.Email,
		"emailVerified": owner.EmailVerified,
	})
}
