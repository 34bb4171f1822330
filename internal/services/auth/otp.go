package auth

import (
	"context"
	"errors"

	apperrors "freshcart/internal/errors"
	"freshcart/internal/metrics"
	"freshcart/internal/models"
	"freshcart/internal/repositories"
	"freshcart/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func (s *service) ValidateOTP(ctx context.Context, storeID, otp string) (*Session, error) {
	var verdict *apperrors.AppError
	_, err := s.sessions.Mutate(ctx, storeID, func(sess *models.LoginAttemptSession) error {
		if sess.Status != models.AttemptOTPSent || sess.OTPHash == "" || sess.OTPExpires == nil {
			verdict = apperrors.ErrNoOTPRequest
			return nil
		}

		if s.now().After(*sess.OTPExpires) {
			sess.ClearOTP()
			sess.ResetSecondary()
			sess.Status = models.AttemptPending
			verdict = apperrors.ErrOTPExpired
			return nil
		}

		if bcrypt.CompareHashAndPassword([]byte(sess.OTPHash), []byte(otp)) != nil {
			sess.OTPFailedAttempts++
			if s.security.MaxOTPAttempts > 0 && sess.OTPFailedAttempts >= s.security.MaxOTPAttempts {
				sess.ClearOTP()
				sess.Status = models.AttemptPending
				verdict = apperrors.ErrOTPExhausted
				return nil
			}
			verdict = apperrors.ErrOTPInvalid
			return nil
		}

		sess.ClearOTP()
		sess.ResetSecondary()
		sess.ResendOTPLockUntil = nil
		sess.Status = models.AttemptVerified
		return nil
	})
	if errors.Is(err, repositories.ErrNotFound) {
		verdict = apperrors.ErrNoOTPRequest
	} else if err != nil {
		return nil, apperrors.Internal(err)
	}

	if verdict != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.FlowShopOTP, verdict.Code).Inc()
		return nil, verdict
	}

	owner, err := s.owners.GetByStoreID(ctx, storeID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.ErrUnauthorized
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	session, err := s.issueSession(ctx, owner)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	metrics.LoginAttemptsTotal.WithLabelValues(metrics.FlowShopOTP, "success").Inc()
	s.logger.Info("shop owner logged in", zap.String("store_id", storeID))
	return session, nil
}

func (s *service) ResendOTP(ctx context.Context, storeID string) error {
	otp, err := utils.GenerateOTP(otpLength)
	if err != nil {
		return apperrors.Internal(err)
	}
	otpHash, err := s.hash(otp)
	if err != nil {
		return apperrors.Internal(err)
	}

	var verdict *apperrors.AppError
	_, err = s.sessions.Mutate(ctx, storeID, func(sess *models.LoginAttemptSession) error {
		now := s.now()
		if sess.Status != models.AttemptOTPSent {
			verdict = apperrors.ErrNoOTPRequest
			return nil
		}
		if sess.ResendOTPLockUntil != nil && now.Before(*sess.ResendOTPLockUntil) {
			verdict = apperrors.ErrResendTooSoon.WithRetryAt(*sess.ResendOTPLockUntil)
			return nil
		}

		expires := now.Add(s.security.OTPTTL)
		cooldown := now.Add(s.security.OTPResendCooldown)
		sess.OTPHash = otpHash
		sess.OTPExpires = &expires
		sess.OTPFailedAttempts = 0
		sess.ResendOTPLockUntil = &cooldown
		return nil
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.ErrNoOTPRequest
	}
	if err != nil {
		return apperrors.Internal(err)
	}
	if verdict != nil {
		return verdict
	}

	owner, err := s.owners.GetByStoreID(ctx, storeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.ErrNoOTPRequest
		}
		return apperrors.Internal(err)
	}
	s.sendOTP(ctx, owner, otp)
	s.logger.Info("otp resent", zap.String("store_id", storeID))
	return nil
}
