package handlers

import (
	"strconv"

	apperrors "freshcart/internal/errors"
	"freshcart/internal/models"
	"freshcart/internal/services/customer"
	"freshcart/internal/utils"
	"freshcart/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CustomerAuthHandler serves the customer routes under /api/custAuth.
type CustomerAuthHandler struct {
	customerService customer.Service
	validator       *validation.Validator
	cookies         cookieJar
	logger          *zap.Logger
}

func NewCustomerAuthHandler(customerService customer.Service, v *validation.Validator, secureCookies bool, logger *zap.Logger) *CustomerAuthHandler {
	return &CustomerAuthHandler{
		customerService: customerService,
		validator:       v,
		cookies:         cookieJar{secure: secureCookies},
		logger:          logger,
	}
}

func sessionBody(message string, s *customer.Session) fiber.Map {
	return fiber.Map{
		"message": message,
		"customer": fiber.Map{
			"id":    s.CustomerID,
			"name":  s.Name,
			"email": s.Email,
		},
	}
}

func (h *CustomerAuthHandler) Register(c *fiber.Ctx) error {
	var req models.CustomerRegisterRequest
	if err := parse(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	session, err := h.customerService.Register(c.UserContext(), req, c.IP())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	h.cookies.setCustomerSession(c, session)
	return utils.Created(c, sessionBody("Registration successful", session))
}

func (h *CustomerAuthHandler) Login(c *fiber.Ctx) error {
	var req models.CustomerLoginRequest
	if err := parse(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	session, err := h.customerService.Login(c.UserContext(), customer.LoginInput{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		IP:       c.IP(),
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	h.cookies.setCustomerSession(c, session)
	return utils.Success(c, sessionBody("Login successful", session))
}

func (h *CustomerAuthHandler) GoogleAuth(c *fiber.Ctx) error {
	var req models.GoogleAuthRequest
	if err := parse(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	session, err := h.customerService.GoogleAuth(c.UserContext(), req.Credential, c.IP())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	h.cookies.setCustomerSession(c, session)
	return utils.Success(c, sessionBody("Login successful", session))
}

func (h *CustomerAuthHandler) VerifyEmail(c *fiber.Ctx) error {
	if err := h.customerService.VerifyEmail(c.UserContext(), c.Params("token")); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Message(c, "Email verified")
}

// RefreshToken rotates the refresh cookie. A rejected token also drops the
// access cookie so the client falls back to login.
func (h *CustomerAuthHandler) RefreshToken(c *fiber.Ctx) error {
	session, err := h.customerService.RefreshToken(c.UserContext(), c.Cookies(utils.CookieCustRefresh))
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindAuthentication) {
			h.cookies.clear(c, utils.CookieCustAccess, "/", true)
		}
		return respondError(c, h.logger, err)
	}
	h.cookies.setCustomerSession(c, session)
	return utils.Message(c, "Token refreshed")
}

func (h *CustomerAuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.customerService.Logout(c.UserContext(), c.Cookies(utils.CookieCustRefresh)); err != nil {
		return respondError(c, h.logger, err)
	}
	h.cookies.clearCustomerSession(c)
	return utils.Message(c, "Logged out successfully")
}

func (h *CustomerAuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req models.ForgotPasswordRequest
	if err := parse(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.customerService.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Message(c, "If an account exists for that email, a reset link has been sent.")
}

func (h *CustomerAuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req models.ResetPasswordRequest
	if err := parse(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.customerService.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Message(c, "Password has been reset. Please log in.")
}

// ChangePassword signs the customer out everywhere, this browser included.
func (h *CustomerAuthHandler) ChangePassword(c *fiber.Ctx) error {
	id, err := customerID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var req models.ChangePasswordRequest
	if err := parse(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.customerService.ChangePassword(c.UserContext(), id, req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, h.logger, err)
	}
	h.cookies.clearCustomerSession(c)
	return utils.Message(c, "Password changed. Please log in again.")
}

func (h *CustomerAuthHandler) DeleteAccount(c *fiber.Ctx) error {
	id, err := customerID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var req models.DeleteAccountRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, h.logger, apperrors.ErrInvalidBody)
		}
	}
	if err := h.customerService.DeleteAccount(c.UserContext(), id, req.Password); err != nil {
		return respondError(c, h.logger, err)
	}
	h.cookies.clearCustomerSession(c)
	return utils.Message(c, "Account deleted")
}

func (h *CustomerAuthHandler) Session(c *fiber.Ctx) error {
	id, err := customerID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	cust, err := h.customerService.GetProfile(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, fiber.Map{
		"id":            cust.ID,
		"firstName":     cust.FirstName,
		"lastName":      cust.LastName,
		"email":         cust.Email,
		"phone":         cust.Phone,
		"authType":      cust.AuthType,
		"emailVerified": cust.EmailVerified,
	})
}

func customerID(c *fiber.Ctx) (uint, error) {
	claims, err := utils.GetClaims(c)
	if err != nil {
		return 0, apperrors.ErrUnauthorized
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, apperrors.ErrUnauthorized
	}
	return uint(id), nil
}
