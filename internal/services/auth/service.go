// Package auth runs the shop-owner login state machine: onboarding, device
// primary validation, password secondary validation, OTP and the session
// tokens that follow.
package auth

import (
	"context"
	"errors"
	"time"

	"freshcart/internal/config"
	apperrors "freshcart/internal/errors"
	"freshcart/internal/models"
	"freshcart/internal/repositories"
	"freshcart/internal/services/device"
	"freshcart/internal/services/lockout"
	"freshcart/internal/services/notification"
	"freshcart/internal/services/reputation"
	"freshcart/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	secondaryCodeLength = 12
	otpLength           = 6
)

// TokenGuard makes a token id single use. cache.CacheService implements it.
// Delete gives a claim back when the work it guarded failed.
type TokenGuard interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// LoginInput is one shop-owner login request.
type LoginInput struct {
	StoreID   string
	Code      string
	Password  string
	Latitude  float64
	Longitude float64
	Device    models.DeviceKey
	IP        string
}

// Session is an issued access/refresh pair.
type Session struct {
	StoreID        string
	Name           string
	AccessToken    string
	AccessExpires  time.Time
	RefreshToken   string
	RefreshExpires time.Time
}

type Service interface {
	Register(ctx context.Context, req models.ShopRegisterRequest) (*models.ShopOwner, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error

	// Login runs primary then secondary validation. A nil error means the
	// OTP was sent.
	Login(ctx context.Context, in LoginInput) error
	ValidateOTP(ctx context.Context, storeID, otp string) (*Session, error)
	ResendOTP(ctx context.Context, storeID string) error

	// ValidateRefresh checks a refresh JWT against its stored hash.
	ValidateRefresh(ctx context.Context, rawToken string) (*models.AuthClaims, error)
	RefreshToken(ctx context.Context, claims *models.AuthClaims, rawToken string) (*Session, error)
	Logout(ctx context.Context, claims *models.AuthClaims) error
	// BlockAccount applies a block link. It reports whether the account
	// was already blocked.
	BlockAccount(ctx context.Context, token string) (bool, error)

	GetProfile(ctx context.Context, storeID string) (*models.ShopOwner, error)
}

// Deps are the collaborators of the shop-owner service.
type Deps struct {
	ShopOwners repositories.ShopOwnerRepository
	Sessions   repositories.LoginAttemptRepository
	Devices    device.Tracker
	Reputation reputation.Checker
	Notifier   notification.Service
	Tokens     *utils.TokenManager
	Guard      TokenGuard
	Logger     *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type service struct {
	owners     repositories.ShopOwnerRepository
	sessions   repositories.LoginAttemptRepository
	devices    device.Tracker
	reputation reputation.Checker
	notifier   notification.Service
	tokens     *utils.TokenManager
	guard      TokenGuard
	logger     *zap.Logger
	now        func() time.Time

	security  config.SecurityConfig
	publicURL string
	secondary lockout.Policy
}

func NewService(cfg *config.Config, deps Deps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		owners:     deps.ShopOwners,
		sessions:   deps.Sessions,
		devices:    deps.Devices,
		reputation: deps.Reputation,
		notifier:   deps.Notifier,
		tokens:     deps.Tokens,
		guard:      deps.Guard,
		logger:     deps.Logger,
		now:        now,
		security:   cfg.Security,
		publicURL:  cfg.App.PublicURL,
		secondary: lockout.Policy{
			MaxFailures:  cfg.Security.SecondaryMaxFailures,
			LockDuration: cfg.Security.SecondaryLockDuration,
			MaxLocks:     cfg.Security.SecondaryMaxLocks,
		},
	}
}

func (s *service) hash(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), s.security.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (s *service) Register(ctx context.Context, req models.ShopRegisterRequest) (*models.ShopOwner, error) {
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	owner := &models.ShopOwner{
		StoreID:      req.StoreID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	}
	if err := s.owners.Create(ctx, owner); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.Conflict("STORE_EXISTS", "A store with this id or email already exists")
		}
		return nil, apperrors.Internal(err)
	}

	s.sendVerification(ctx, owner)
	s.logger.Info("shop owner registered", zap.String("store_id", owner.StoreID))
	return owner, nil
}

func (s *service) sendVerification(ctx context.Context, owner *models.ShopOwner) {
	token, _, err := s.tokens.Issue(models.PrincipalShopOwner, owner.StoreID, models.PurposeVerifyEmail, "")
	if err != nil {
		s.logger.Error("failed to issue verification token", zap.String("store_id", owner.StoreID), zap.Error(err))
		return
	}
	s.notifier.Notify(ctx, notification.KindShopVerification, owner.Email, notification.Data{
		Name:    owner.Name,
		StoreID: owner.StoreID,
		Link:    s.publicURL + "/api/auth/verify_email/" + token,
	})
}

// VerifyEmail confirms the address and issues the secondary code. Any
// existing login session for the store is replaced, which also lifts a
// block.
func (s *service) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token, models.PurposeVerifyEmail)
	if err != nil || claims.Principal != models.PrincipalShopOwner {
		return apperrors.ErrInvalidLink
	}

	owner, err := s.owners.GetByStoreID(ctx, claims.Subject)
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.ErrInvalidLink
	}
	if err != nil {
		return apperrors.Internal(err)
	}

	key := "verify:jti:" + claims.ID
	fresh, err := s.guard.Claim(ctx, key, s.tokens.TTL(models.PurposeVerifyEmail))
	if err != nil {
		return apperrors.Internal(err)
	}
	if !fresh {
		return apperrors.ErrInvalidLink
	}

	code, err := s.activate(ctx, owner)
	if err != nil {
		s.release(ctx, key)
		return apperrors.Internal(err)
	}

	s.notifier.Notify(ctx, notification.KindSecondaryCode, owner.Email, notification.Data{
		Name:    owner.Name,
		StoreID: owner.StoreID,
		Code:    code,
	})
	s.logger.Info("shop owner email verified", zap.String("store_id", owner.StoreID))
	return nil
}

// activate marks the address verified and stores a fresh pending session
// holding the hash of the returned secondary code.
func (s *service) activate(ctx context.Context, owner *models.ShopOwner) (string, error) {
	if err := s.owners.MarkEmailVerified(ctx, owner.ID); err != nil {
		return "", err
	}
	code, err := utils.GenerateSecureCode(secondaryCodeLength)
	if err != nil {
		return "", err
	}
	codeHash, err := s.hash(code)
	if err != nil {
		return "", err
	}
	session := &models.LoginAttemptSession{
		StoreID:         owner.StoreID,
		EncryptCodeHash: codeHash,
		Status:          models.AttemptPending,
	}
	if err := s.sessions.Upsert(ctx, session); err != nil {
		return "", err
	}
	return code, nil
}

// release drops a single-use claim so the link can be retried.
func (s *service) release(ctx context.Context, key string) {
	if err := s.guard.Delete(ctx, key); err != nil {
		s.logger.Error("failed to release token claim", zap.String("key", key), zap.Error(err))
	}
}

// ResendVerification never reveals whether the address is registered. A
// verified owner gets a new link only while no login session exists, which
// happens when activation failed after the address was marked.
func (s *service) ResendVerification(ctx context.Context, email string) error {
	owner, err := s.owners.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Internal(err)
	}
	if owner.EmailVerified {
		_, err := s.sessions.GetByStoreID(ctx, owner.StoreID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return apperrors.Internal(err)
		}
	}
	s.sendVerification(ctx, owner)
	return nil
}

func (s *service) GetProfile(ctx context.Context, storeID string) (*models.ShopOwner, error) {
	owner, err := s.owners.GetByStoreID(ctx, storeID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.ErrUnauthorized
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return owner, nil
}
