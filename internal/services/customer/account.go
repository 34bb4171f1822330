package customer

import (
	"context"
	"errors"
	"net/url"

	apperrors "freshcart/internal/errors"
	"freshcart/internal/metrics"
	"freshcart/internal/models"
	"freshcart/internal/repositories"
	"freshcart/internal/services/notification"
	"freshcart/internal/utils"

	"go.uber.org/zap"
)

func (s *service) RefreshToken(ctx context.Context, rawToken string) (*Session, error) {
	if rawToken == "" {
		return nil, apperrors.ErrNoRefresh
	}
	oldHash := utils.HashToken(rawToken)

	row, err := s.tokens.FindByHash(ctx, oldHash)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.ErrInvalidRefresh
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if row.Type != models.TokenRefresh {
		return nil, apperrors.ErrInvalidRefresh
	}
	if row.ExpiredAt(s.now()) {
		if err := s.tokens.Delete(ctx, oldHash); err != nil {
			s.logger.Error("failed to delete expired refresh token", zap.Uint("customer_id", row.CustomerID), zap.Error(err))
		}
		metrics.TokenRotationsTotal.WithLabelValues(string(models.PrincipalCustomer), "expired").Inc()
		return nil, apperrors.ErrInvalidRefresh
	}

	c, err := s.customers.GetByID(ctx, row.CustomerID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.ErrInvalidRefresh
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	session, next, err := s.signSession(c)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	err = s.tokens.Rotate(ctx, oldHash, next.TokenHash, next.ExpiresAt, s.now())
	if errors.Is(err, repositories.ErrStaleToken) {
		metrics.TokenRotationsTotal.WithLabelValues(string(models.PrincipalCustomer), "stale").Inc()
		s.logger.Warn("stale refresh token replayed", zap.Uint("customer_id", c.ID))
		return nil, apperrors.ErrInvalidRefresh
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	metrics.TokenRotationsTotal.WithLabelValues(string(models.PrincipalCustomer), "ok").Inc()
	return session, nil
}

func (s *service) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return apperrors.ErrNoRefresh
	}
	if err := s.tokens.Delete(ctx, utils.HashToken(rawToken)); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return apperrors.Internal(err)
	}
	return nil
}

// consume spends a one-time token and returns its row.
func (s *service) consume(ctx context.Context, raw string, typ models.TokenType) (*models.Token, error) {
	if raw == "" {
		return nil, apperrors.ErrInvalidLink
	}
	row, err := s.tokens.Consume(ctx, utils.HashToken(raw), typ)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.ErrInvalidLink
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if row.ExpiredAt(s.now()) {
		return nil, apperrors.ErrInvalidLink
	}
	return row, nil
}

func (s *service) VerifyEmail(ctx context.Context, token string) error {
	row, err := s.consume(ctx, token, models.TokenEmailVerification)
	if err != nil {
		return err
	}
	_, err = s.customers.Mutate(ctx, row.CustomerID, func(c *models.Customer) error {
		c.EmailVerified = true
		return nil
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.ErrInvalidLink
	}
	if err != nil {
		return apperrors.Internal(err)
	}
	s.logger.Info("customer email verified", zap.Uint("customer_id", row.CustomerID))
	return nil
}

// ForgotPassword answers the same way whether or not the account exists.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	c, err := s.customers.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Internal(err)
	}
	if !c.HasPassword() {
		return nil
	}

	if err := s.tokens.DeleteByCustomer(ctx, c.ID, models.TokenPasswordReset); err != nil {
		return apperrors.Internal(err)
	}
	raw, err := s.oneTimeToken(ctx, c.ID, models.TokenPasswordReset, s.security.PasswordResetTTL)
	if err != nil {
		return apperrors.Internal(err)
	}
	s.notifier.Notify(ctx, notification.KindPasswordReset, c.Email, notification.Data{
		Name: c.FirstName,
		Link: s.frontendURL + "/reset-password?token=" + url.QueryEscape(raw),
	})
	return nil
}

func (s *service) ResetPassword(ctx context.Context, token, password string) error {
	row, err := s.consume(ctx, token, models.TokenPasswordReset)
	if err != nil {
		return err
	}
	hash, err := s.hash(password)
	if err != nil {
		return apperrors.Internal(err)
	}

	c, err := s.customers.Mutate(ctx, row.CustomerID, func(c *models.Customer) error {
		now := s.now()
		c.PasswordHash = hash
		c.PasswordChangedAt = &now
		c.SetLockState(s.policy.Reset(c.LockState()))
		return nil
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.ErrInvalidLink
	}
	if err != nil {
		return apperrors.Internal(err)
	}

	if err := s.tokens.DeleteByCustomer(ctx, c.ID, models.TokenRefresh); err != nil {
		return apperrors.Internal(err)
	}
	s.notifyPasswordChanged(ctx, c)
	s.logger.Info("customer password reset", zap.Uint("customer_id", c.ID))
	return nil
}

func (s *service) ChangePassword(ctx context.Context, customerID uint, current, next string) error {
	c, err := s.customers.GetByID(ctx, customerID)
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.ErrUnauthorized
	}
	if err != nil {
		return apperrors.Internal(err)
	}
	if !c.HasPassword() {
		return apperrors.ErrNoPassword
	}
	if !passwordMatches(c, current) {
		return apperrors.ErrWrongPassword
	}
	if current == next {
		return apperrors.ErrPasswordUnchanged
	}
	if c.PasswordChangedAt != nil {
		retryAt := c.PasswordChangedAt.Add(s.security.PasswordChangeCooldown)
		if s.now().Before(retryAt) {
			return apperrors.ErrChangeTooSoon.WithRetryAt(retryAt)
		}
	}

	hash, err := s.hash(next)
	if err != nil {
		return apperrors.Internal(err)
	}
	c, err = s.customers.Mutate(ctx, customerID, func(c *models.Customer) error {
		now := s.now()
		c.PasswordHash = hash
		c.PasswordChangedAt = &now
		return nil
	})
	if err != nil {
		return apperrors.Internal(err)
	}

	if err := s.tokens.DeleteByCustomer(ctx, customerID, models.TokenRefresh); err != nil {
		return apperrors.Internal(err)
	}
	s.notifyPasswordChanged(ctx, c)
	s.logger.Info("customer password changed", zap.Uint("customer_id", customerID))
	return nil
}

func (s *service) notifyPasswordChanged(ctx context.Context, c *models.Customer) {
	s.notifier.Notify(ctx, notification.KindPasswordChanged, c.Email, notification.Data{Name: c.FirstName})
}

// DeleteAccount removes the customer. Google accounts have no password to
// confirm. The billing customer is removed after the database commit and a
// failure there is only logged.
func (s *service) DeleteAccount(ctx context.Context, customerID uint, password string) error {
	c, err := s.customers.GetByID(ctx, customerID)
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.ErrUnauthorized
	}
	if err != nil {
		return apperrors.Internal(err)
	}
	if c.HasPassword() && !passwordMatches(c, password) {
		return apperrors.ErrWrongPassword
	}

	if err := s.customers.DeleteAccount(ctx, customerID); err != nil {
		return apperrors.Internal(err)
	}
	if c.StripeCustomerID != "" {
		if err := s.billing.DeleteCustomer(ctx, c.StripeCustomerID); err != nil {
			s.logger.Error("failed to delete billing customer",
				zap.Uint("customer_id", customerID),
				zap.String("stripe_customer_id", c.StripeCustomerID),
				zap.Error(err))
		}
	}
	s.logger.Info("customer account deleted", zap.Uint("customer_id", customerID))
	return nil
}
