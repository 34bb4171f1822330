// Package customer implements customer accounts: password and Google
// sign-in, opaque refresh tokens, email verification and password
// recovery.
package customer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"freshcart/internal/config"
	apperrors "freshcart/internal/errors"
	"freshcart/internal/metrics"
	"freshcart/internal/models"
	"freshcart/internal/repositories"
	"freshcart/internal/services/billing"
	"freshcart/internal/services/lockout"
	"freshcart/internal/services/notification"
	"freshcart/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// LoginInput identifies the customer by email or phone.
type LoginInput struct {
	Email    string
	Phone    string
	Password string
	IP       string
}

// Session is an issued access token and opaque refresh token.
type Session struct {
	CustomerID     uint
	Name           string
	Email          string
	AccessToken    string
	AccessExpires  time.Time
	RefreshToken   string
	RefreshExpires time.Time
}

type Service interface {
	Register(ctx context.Context, req models.CustomerRegisterRequest, ip string) (*Session, error)
	Login(ctx context.Context, in LoginInput) (*Session, error)
	GoogleAuth(ctx context.Context, credential, ip string) (*Session, error)

	RefreshToken(ctx context.Context, rawToken string) (*Session, error)
	Logout(ctx context.Context, rawToken string) error

	VerifyEmail(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	ChangePassword(ctx context.Context, customerID uint, current, next string) error

	DeleteAccount(ctx context.Context, customerID uint, password string) error
	GetProfile(ctx context.Context, customerID uint) (*models.Customer, error)
}

type Deps struct {
	Customers repositories.CustomerRepository
	Tokens    repositories.TokenRepository
	JWT       *utils.TokenManager
	Google    GoogleVerifier
	Billing   billing.Provider
	Notifier  notification.Service
	Logger    *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type service struct {
	customers repositories.CustomerRepository
	tokens    repositories.TokenRepository
	jwt       *utils.TokenManager
	google    GoogleVerifier
	billing   billing.Provider
	notifier  notification.Service
	logger    *zap.Logger
	now       func() time.Time

	security    config.SecurityConfig
	refreshTTL  time.Duration
	publicURL   string
	frontendURL string
	policy      lockout.Policy
}

func NewService(cfg *config.Config, deps Deps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		customers:   deps.Customers,
		tokens:      deps.Tokens,
		jwt:         deps.JWT,
		google:      deps.Google,
		billing:     deps.Billing,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		now:         now,
		security:    cfg.Security,
		refreshTTL:  cfg.JWT.CustRefreshTTL,
		publicURL:   cfg.App.PublicURL,
		frontendURL: cfg.App.FrontendURL,
		policy: lockout.Policy{
			MaxFailures:  cfg.Security.CustomerMaxFailures,
			LockDuration: cfg.Security.CustomerLockDuration,
		},
	}
}

func (s *service) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.security.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func passwordMatches(c *models.Customer, password string) bool {
	return c.HasPassword() && bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
}

func (s *service) Register(ctx context.Context, req models.CustomerRegisterRequest, ip string) (*Session, error) {
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := s.now()
	phone := strings.TrimSpace(req.Phone)
	c := &models.Customer{
		Email:        req.Email,
		Phone:        &phone,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		AuthType:     models.AuthPassword,
		LastLoginAt:  &now,
		LastLoginIP:  ip,
	}
	if err := s.customers.Create(ctx, c); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.ErrAccountExists
		}
		return nil, apperrors.Internal(err)
	}

	s.createBillingCustomer(ctx, c)
	s.sendEmailVerification(ctx, c)

	session, refresh, err := s.signSession(c)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.tokens.Create(ctx, refresh); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.logger.Info("customer registered", zap.Uint("customer_id", c.ID))
	return session, nil
}

func (s *service) createBillingCustomer(ctx context.Context, c *models.Customer) {
	id, err := s.billing.CreateCustomer(ctx, c.ID, c.Email, c.FullName())
	if err != nil {
		s.logger.Error("failed to create billing customer", zap.Uint("customer_id", c.ID), zap.Error(err))
		return
	}
	if id == "" {
		return
	}
	if err := s.customers.SetStripeCustomerID(ctx, c.ID, id); err != nil {
		s.logger.Error("failed to store billing customer id", zap.Uint("customer_id", c.ID), zap.Error(err))
		return
	}
	c.StripeCustomerID = id
}

// oneTimeToken stores a fresh single-use token of typ and returns its raw
// value.
func (s *service) oneTimeToken(ctx context.Context, customerID uint, typ models.TokenType, ttl time.Duration) (string, error) {
	raw, err := utils.GenerateOpaqueToken()
	if err != nil {
		return "", err
	}
	err = s.tokens.Create(ctx, &models.Token{
		TokenHash:  utils.HashToken(raw),
		CustomerID: customerID,
		Type:       typ,
		ExpiresAt:  s.now().Add(ttl),
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

func (s *service) sendEmailVerification(ctx context.Context, c *models.Customer) {
	raw, err := s.oneTimeToken(ctx, c.ID, models.TokenEmailVerification, s.security.EmailVerificationTTL)
	if err != nil {
		s.logger.Error("failed to create verification token", zap.Uint("customer_id", c.ID), zap.Error(err))
		return
	}
	s.notifier.Notify(ctx, notification.KindCustomerVerification, c.Email, notification.Data{
		Name: c.FirstName,
		Link: s.publicURL + "/api/custAuth/verify-email/" + raw,
	})
}

func (s *service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	c, err := s.findForLogin(ctx, in)
	if errors.Is(err, repositories.ErrNotFound) {
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.FlowCustomer, "unknown").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !c.HasPassword() {
		return nil, apperrors.ErrGoogleAccount
	}

	ok := passwordMatches(c, in.Password)

	var verdict *apperrors.AppError
	var event lockout.Event
	c, err = s.customers.Mutate(ctx, c.ID, func(c *models.Customer) error {
		now := s.now()
		state, _ := s.policy.Refresh(c.LockState(), now)
		c.SetLockState(state)

		if state.LockedAt(now) {
			verdict = apperrors.ErrLocked.WithLock(true, false, state.LockUntil)
			return nil
		}
		if !ok {
			state, event = s.policy.RecordFailure(state, now)
			c.SetLockState(state)
			if event == lockout.EventLocked {
				verdict = apperrors.ErrAccountLocked.WithLock(true, false, state.LockUntil)
			} else {
				verdict = apperrors.ErrInvalidCredentials.WithLock(false, false, nil)
			}
			return nil
		}

		c.SetLockState(s.policy.Reset(state))
		c.LastLoginAt = &now
		c.LastLoginIP = in.IP
		return nil
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if event == lockout.EventLocked {
		metrics.LockoutsTotal.WithLabelValues("customer").Inc()
		s.logger.Warn("customer locked", zap.Uint("customer_id", c.ID), zap.Timep("lock_until", c.LockUntil))
	}
	if verdict != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.FlowCustomer, verdict.Code).Inc()
		return nil, verdict
	}

	session, err := s.startSession(ctx, c)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	metrics.LoginAttemptsTotal.WithLabelValues(metrics.FlowCustomer, "success").Inc()
	s.logger.Info("customer logged in", zap.Uint("customer_id", c.ID))
	return session, nil
}

func (s *service) findForLogin(ctx context.Context, in LoginInput) (*models.Customer, error) {
	if in.Email != "" {
		return s.customers.GetByEmail(ctx, in.Email)
	}
	if in.Phone != "" {
		return s.customers.GetByPhone(ctx, strings.TrimSpace(in.Phone))
	}
	return nil, repositories.ErrNotFound
}

func (s *service) GoogleAuth(ctx context.Context, credential, ip string) (*Session, error) {
	id, err := s.google.Verify(ctx, credential)
	if err != nil {
		s.logger.Info("google token rejected", zap.Error(err))
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.FlowGoogle, "invalid_token").Inc()
		return nil, apperrors.ErrGoogleToken
	}
	if !id.EmailVerified {
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.FlowGoogle, "unverified").Inc()
		return nil, apperrors.ErrEmailNotVerified
	}

	now := s.now()
	c, err := s.customers.GetByEmail(ctx, id.Email)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		c = &models.Customer{
			Email:         id.Email,
			FirstName:     id.GivenName,
			LastName:      id.FamilyName,
			AuthType:      models.AuthGoogle,
			GoogleSubject: id.Subject,
			EmailVerified: true,
			LastLoginAt:   &now,
			LastLoginIP:   ip,
		}
		if err := s.customers.Create(ctx, c); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return nil, apperrors.ErrAccountExists
			}
			return nil, apperrors.Internal(err)
		}
		s.createBillingCustomer(ctx, c)
		s.logger.Info("customer registered with google", zap.Uint("customer_id", c.ID))
	case err != nil:
		return nil, apperrors.Internal(err)
	default:
		c, err = s.customers.Mutate(ctx, c.ID, func(c *models.Customer) error {
			c.AuthType = models.AuthGoogle
			c.GoogleSubject = id.Subject
			c.EmailVerified = true
			c.LastLoginAt = &now
			c.LastLoginIP = ip
			return nil
		})
		if err != nil {
			return nil, apperrors.Internal(err)
		}
	}

	session, err := s.startSession(ctx, c)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	metrics.LoginAttemptsTotal.WithLabelValues(metrics.FlowGoogle, "success").Inc()
	return session, nil
}

// startSession replaces the customer's refresh token with a new one.
func (s *service) startSession(ctx context.Context, c *models.Customer) (*Session, error) {
	session, refresh, err := s.signSession(c)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.ReplaceRefresh(ctx, refresh); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return session, nil
}

func (s *service) signSession(c *models.Customer) (*Session, *models.Token, error) {
	access, claims, err := s.jwt.Issue(models.PrincipalCustomer, strconv.FormatUint(uint64(c.ID), 10), models.PurposeAccess, c.FullName())
	if err != nil {
		return nil, nil, err
	}
	raw, err := utils.GenerateOpaqueToken()
	if err != nil {
		return nil, nil, err
	}
	expires := s.now().Add(s.refreshTTL)

	session := &Session{
		CustomerID:     c.ID,
		Name:           c.FullName(),
		Email:          c.Email,
		AccessToken:    access,
		AccessExpires:  claims.ExpiresAt.Time,
		RefreshToken:   raw,
		RefreshExpires: expires,
	}
	row := &models.Token{
		TokenHash:  utils.HashToken(raw),
		CustomerID: c.ID,
		Type:       models.TokenRefresh,
		ExpiresAt:  expires,
	}
	return session, row, nil
}

func (s *service) GetProfile(ctx context.Context, customerID uint) (*models.Customer, error) {
	c, err := s.customers.GetByID(ctx, customerID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.ErrUnauthorized
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return c, nil
}
