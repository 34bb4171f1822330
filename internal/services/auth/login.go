package auth

import (
	"context"
	"errors"

	apperrors "freshcart/internal/errors"
	"freshcart/internal/metrics"
	"freshcart/internal/models"
	"freshcart/internal/repositories"
	"freshcart/internal/services/device"
	"freshcart/internal/services/lockout"
	"freshcart/internal/services/notification"
	"freshcart/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func (s *service) Login(ctx context.Context, in LoginInput) error {
	log := s.logger.With(zap.String("store_id", in.StoreID), zap.String("device_id", in.Device.DeviceID))

	safe, err := s.reputation.IsSafe(ctx, in.IP)
	if err != nil {
		log.Warn("ip reputation check failed", zap.String("ip", in.IP), zap.Error(err))
	}
	if err != nil || !safe {
		if err := s.devices.ForceBlock(ctx, in.Device); err != nil {
			return apperrors.Internal(err)
		}
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.FlowShopPrimary, "ip_rejected").Inc()
		return apperrors.ErrIPInvalid.WithLock(false, true, nil)
	}

	gate, st, err := s.devices.CheckGate(ctx, in.Device)
	if err != nil {
		return apperrors.Internal(err)
	}
	switch gate {
	case device.GateBlocked:
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.FlowShopPrimary, "blocked").Inc()
		return apperrors.ErrDeviceBlocked.WithLock(st.Locked, st.Blocked, st.LockUntil)
	case device.GateLocked:
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.FlowShopPrimary, "locked").Inc()
		return apperrors.ErrDeviceLocked.WithLock(st.Locked, st.Blocked, st.LockUntil)
	}

	session, err := s.sessions.GetByStoreID(ctx, in.StoreID)
	if errors.Is(err, repositories.ErrNotFound) {
		log.Info("login for store without session")
		return s.primaryFailure(ctx, in.Device)
	}
	if err != nil {
		return apperrors.Internal(err)
	}

	if bcrypt.CompareHashAndPassword([]byte(session.EncryptCodeHash), []byte(in.Code)) != nil {
		log.Info("secondary code mismatch")
		return s.primaryFailure(ctx, in.Device)
	}

	owner, err := s.owners.GetByStoreID(ctx, in.StoreID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return apperrors.Internal(err)
	}
	// A session without its account falls through to the secondary step,
	// which reports the missing account.
	if owner != nil && !s.locationMatches(owner, in.Latitude, in.Longitude) {
		log.Info("login location mismatch")
		return s.primaryFailure(ctx, in.Device)
	}

	metrics.LoginAttemptsTotal.WithLabelValues(metrics.FlowShopPrimary, "success").Inc()
	return s.secondaryValidation(ctx, in, owner)
}

func (s *service) primaryFailure(ctx context.Context, key models.DeviceKey) error {
	st, err := s.devices.RecordFailure(ctx, key)
	if err != nil {
		return apperrors.Internal(err)
	}
	metrics.LoginAttemptsTotal.WithLabelValues(metrics.FlowShopPrimary, "failure").Inc()
	return apperrors.ErrInvalidLogin.WithLock(st.Locked, st.Blocked, st.LockUntil)
}

func (s *service) locationMatches(owner *models.ShopOwner, lat, lng float64) bool {
	if !owner.HasLocation() {
		return false
	}
	return distanceMeters(*owner.Latitude, *owner.Longitude, lat, lng) <= s.security.LocationToleranceMeters
}

// secondaryValidation checks the account password and, on success, sends
// the OTP. owner is nil when the account no longer exists.
func (s *service) secondaryValidation(ctx context.Context, in LoginInput, owner *models.ShopOwner) error {
	if err := s.devices.Clear(ctx, in.Device); err != nil {
		return apperrors.Internal(err)
	}

	passwordOK := owner != nil &&
		bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte(in.Password)) == nil

	// Hash outside the row lock; bcrypt is slow.
	var otp, otpHash string
	if passwordOK {
		var err error
		if otp, err = utils.GenerateOTP(otpLength); err != nil {
			return apperrors.Internal(err)
		}
		if otpHash, err = s.hash(otp); err != nil {
			return apperrors.Internal(err)
		}
	}

	var verdict *apperrors.AppError
	var event lockout.Event
	session, err := s.sessions.Mutate(ctx, in.StoreID, func(sess *models.LoginAttemptSession) error {
		now := s.now()
		state, _ := s.secondary.Refresh(sess.LockState(), now)
		sess.SetLockState(state)

		switch {
		case state.LockedAt(now):
			verdict = apperrors.ErrLocked.WithLock(true, false, state.LockUntil)
			return nil
		case state.Blocked:
			verdict = apperrors.ErrBlocked.WithLock(false, true, nil)
			return nil
		}

		if !passwordOK {
			state, event = s.secondary.RecordFailure(state, now)
			sess.SetLockState(state)
			if owner == nil {
				verdict = apperrors.NotFound("ACCOUNT_NOT_FOUND", "No shop owner account found for this store").
					WithLock(state.Locked, state.Blocked, state.LockUntil)
			} else {
				verdict = apperrors.ErrInvalidLogin.WithLock(state.Locked, state.Blocked, state.LockUntil)
			}
			return nil
		}

		expires := now.Add(s.security.OTPTTL)
		sess.OTPHash = otpHash
		sess.OTPExpires = &expires
		sess.OTPFailedAttempts = 0
		sess.ResendOTPLockUntil = nil
		sess.ResetSecondary()
		sess.Status = models.AttemptOTPSent
		return nil
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return s.primaryFailure(ctx, in.Device)
	}
	if err != nil {
		return apperrors.Internal(err)
	}

	log := s.logger.With(zap.String("store_id", in.StoreID))
	switch event {
	case lockout.EventLocked:
		metrics.LockoutsTotal.WithLabelValues("account").Inc()
		log.Warn("shop owner account locked", zap.Timep("lock_until", session.SecondaryLockUntil))
		s.sendSecurityAlert(ctx, in.StoreID)
	case lockout.EventBlocked:
		metrics.BlocksTotal.WithLabelValues("account", "failures").Inc()
		log.Warn("shop owner account blocked")
		s.sendSecurityAlert(ctx, in.StoreID)
	}

	if verdict != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.FlowShopSecondary, verdict.Code).Inc()
		return verdict
	}

	metrics.LoginAttemptsTotal.WithLabelValues(metrics.FlowShopSecondary, "otp_sent").Inc()
	s.sendOTP(ctx, owner, otp)
	log.Info("otp sent")
	return nil
}

func (s *service) blockLink(storeID string) (string, error) {
	token, _, err := s.tokens.Issue(models.PrincipalShopOwner, storeID, models.PurposeBlock, "")
	if err != nil {
		return "", err
	}
	return s.publicURL + "/api/auth/block_account/" + token, nil
}

func (s *service) sendOTP(ctx context.Context, owner *models.ShopOwner, otp string) {
	link, err := s.blockLink(owner.StoreID)
	if err != nil {
		s.logger.Error("failed to issue block token", zap.String("store_id", owner.StoreID), zap.Error(err))
	}
	s.notifier.Notify(ctx, notification.KindOTP, owner.Email, notification.Data{
		Name:    owner.Name,
		StoreID: owner.StoreID,
		OTP:     otp,
		Link:    link,
	})
}

func (s *service) sendSecurityAlert(ctx context.Context, storeID string) {
	link, err := s.blockLink(storeID)
	if err != nil {
		s.logger.Error("failed to issue block token", zap.String("store_id", storeID), zap.Error(err))
	}
	s.notifier.Notify(ctx, notification.KindSecurityAlert, s.security.SecurityAlertEmail, notification.Data{
		StoreID: storeID,
		Link:    link,
		At:      s.now().UTC().Format("2006-01-02 15:04 MST"),
	})
}
