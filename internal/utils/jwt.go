package utils

import (
	"errors"
	"fmt"
	"time"

	"freshcart/internal/config"
	"freshcart/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenPurpose = errors.New("token purpose mismatch")
)

// TokenManager signs and verifies HS256 tokens. Each purpose has its own
// secret and lifetime.
type TokenManager struct {
	issuer  string
	secrets map[models.Purpose][]byte
	ttls    map[models.Purpose]time.Duration
	now     func() time.Time
}

func NewTokenManager(cfg config.JWTConfig) *TokenManager {
	return &TokenManager{
		issuer: cfg.Issuer,
		secrets: map[models.Purpose][]byte{
			models.PurposeAccess:      []byte(cfg.AccessSecret),
			models.PurposeRefresh:     []byte(cfg.RefreshSecret),
			models.PurposeBlock:       []byte(cfg.BlockSecret),
			models.PurposeVerifyEmail: []byte(cfg.VerifySecret),
		},
		ttls: map[models.Purpose]time.Duration{
			models.PurposeAccess:      cfg.AccessTTL,
			models.PurposeRefresh:     cfg.RefreshTTL,
			models.PurposeBlock:       cfg.BlockTTL,
			models.PurposeVerifyEmail: cfg.VerifyTTL,
		},
		now: time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// TTL returns the lifetime of tokens issued for purpose.
func (m *TokenManager) TTL(purpose models.Purpose) time.Duration {
	return m.ttls[purpose]
}

// Issue signs a new token. The returned claims carry the generated jti and
// expiry so callers can persist them.
func (m *TokenManager) Issue(principal models.Principal, subject string, purpose models.Purpose, name string) (string, *models.AuthClaims, error) {
	secret, ok := m.secrets[purpose]
	if !ok || len(secret) == 0 {
		return "", nil, fmt.Errorf("no signing secret for purpose %q", purpose)
	}

	now := m.now()
	claims := &models.AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttls[purpose])),
		},
		Principal: principal,
		Purpose:   purpose,
		Name:      name,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies signature, issuer and expiry, and checks that the token was
// issued for purpose.
func (m *TokenManager) Parse(tokenStr string, purpose models.Purpose) (*models.AuthClaims, error) {
	secret, ok := m.secrets[purpose]
	if !ok || len(secret) == 0 {
		return nil, fmt.Errorf("no signing secret for purpose %q", purpose)
	}

	claims := &models.AuthClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Purpose != purpose {
		return nil, ErrTokenPurpose
	}
	return claims, nil
}
