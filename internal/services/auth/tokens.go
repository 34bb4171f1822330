package auth

import (
	"context"
	"errors"
	"fmt"

	apperrors "freshcart/internal/errors"
	"freshcart/internal/metrics"
	"freshcart/internal/models"
	"freshcart/internal/repositories"
	"freshcart/internal/services/notification"
	"freshcart/internal/utils"

	"go.uber.org/zap"
)

// issueSession signs an access/refresh pair and stores the refresh hash.
func (s *service) issueSession(ctx context.Context, owner *models.ShopOwner) (*Session, error) {
	session, refresh, err := s.signPair(owner)
	if err != nil {
		return nil, err
	}
	if err := s.owners.AddRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return session, nil
}

func (s *service) signPair(owner *models.ShopOwner) (*Session, *models.ShopOwnerRefreshToken, error) {
	access, accessClaims, err := s.tokens.Issue(models.PrincipalShopOwner, owner.StoreID, models.PurposeAccess, owner.Name)
	if err != nil {
		return nil, nil, err
	}
	refresh, refreshClaims, err := s.tokens.Issue(models.PrincipalShopOwner, owner.StoreID, models.PurposeRefresh, owner.Name)
	if err != nil {
		return nil, nil, err
	}

	row := &models.ShopOwnerRefreshToken{
		ShopOwnerID: owner.ID,
		TokenID:     refreshClaims.ID,
		TokenHash:   utils.HashToken(refresh),
		ExpiresAt:   refreshClaims.ExpiresAt.Time,
	}
	return &Session{
		StoreID:        owner.StoreID,
		Name:           owner.Name,
		AccessToken:    access,
		AccessExpires:  accessClaims.ExpiresAt.Time,
		RefreshToken:   refresh,
		RefreshExpires: refreshClaims.ExpiresAt.Time,
	}, row, nil
}

func (s *service) ValidateRefresh(ctx context.Context, rawToken string) (*models.AuthClaims, error) {
	if rawToken == "" {
		return nil, apperrors.ErrNoRefresh
	}
	claims, err := s.tokens.Parse(rawToken, models.PurposeRefresh)
	if err != nil || claims.Principal != models.PrincipalShopOwner {
		return nil, apperrors.ErrInvalidRefresh
	}

	row, err := s.owners.FindRefreshToken(ctx, claims.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.ErrInvalidRefresh
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !utils.TokenHashEqual(rawToken, row.TokenHash) || !s.now().Before(row.ExpiresAt) {
		return nil, apperrors.ErrInvalidRefresh
	}
	return claims, nil
}

func (s *service) RefreshToken(ctx context.Context, claims *models.AuthClaims, rawToken string) (*Session, error) {
	owner, err := s.owners.GetByStoreID(ctx, claims.Subject)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.ErrInvalidRefresh
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	session, next, err := s.signPair(owner)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	err = s.owners.RotateRefreshToken(ctx, claims.ID, utils.HashToken(rawToken), next)
	if errors.Is(err, repositories.ErrStaleToken) {
		metrics.TokenRotationsTotal.WithLabelValues(string(models.PrincipalShopOwner), "stale").Inc()
		s.logger.Warn("stale refresh token replayed", zap.String("store_id", owner.StoreID))
		return nil, apperrors.ErrInvalidRefresh
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	metrics.TokenRotationsTotal.WithLabelValues(string(models.PrincipalShopOwner), "ok").Inc()
	return session, nil
}

func (s *service) Logout(ctx context.Context, claims *models.AuthClaims) error {
	if err := s.owners.DeleteRefreshToken(ctx, claims.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return apperrors.Internal(err)
	}
	s.logger.Info("shop owner logged out", zap.String("store_id", claims.Subject))
	return nil
}

func (s *service) BlockAccount(ctx context.Context, token string) (bool, error) {
	claims, err := s.tokens.Parse(token, models.PurposeBlock)
	if err != nil || claims.Principal != models.PrincipalShopOwner {
		return false, apperrors.ErrInvalidLink
	}
	storeID := claims.Subject

	key := "block:jti:" + claims.ID
	fresh, err := s.guard.Claim(ctx, key, s.tokens.TTL(models.PurposeBlock))
	if err != nil {
		return false, apperrors.Internal(err)
	}
	if !fresh {
		// A replayed link is harmless once the account is blocked.
		sess, err := s.sessions.GetByStoreID(ctx, storeID)
		if err == nil && sess.SecondaryIsBlocked {
			return true, nil
		}
		return false, apperrors.ErrInvalidLink
	}

	already := false
	_, err = s.sessions.Mutate(ctx, storeID, func(sess *models.LoginAttemptSession) error {
		if sess.SecondaryIsBlocked {
			already = true
			return nil
		}
		sess.SetLockState(s.secondary.Block(sess.LockState()))
		sess.ResetSecondary()
		sess.ClearOTP()
		sess.ResendOTPLockUntil = nil
		sess.Status = models.AttemptPending
		return nil
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return false, apperrors.ErrInvalidLink
	}
	if err != nil {
		s.release(ctx, key)
		return false, apperrors.Internal(err)
	}
	if already {
		return true, nil
	}

	owner, err := s.owners.GetByStoreID(ctx, storeID)
	switch {
	case err == nil:
		if err := s.owners.DeleteRefreshTokens(ctx, owner.ID); err != nil {
			s.logger.Error("failed to revoke refresh tokens", zap.String("store_id", storeID), zap.Error(err))
		}
		s.notifier.Notify(ctx, notification.KindAccountBlocked, owner.Email, notification.Data{
			Name:    owner.Name,
			StoreID: owner.StoreID,
		})
	case !errors.Is(err, repositories.ErrNotFound):
		s.logger.Error("failed to load blocked account", zap.String("store_id", storeID), zap.Error(err))
	}

	metrics.BlocksTotal.WithLabelValues("account", "block_link").Inc()
	s.logger.Warn("shop owner account blocked by link", zap.String("store_id", storeID))
	return false, nil
}
