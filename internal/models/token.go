package models

import "time"

type TokenType string

const (
	TokenRefresh           TokenType = "refresh"
	TokenEmailVerification TokenType = "emailVerification"
	TokenPasswordReset     TokenType = "passwordReset"
)

// Token is a customer token. The opaque value handed to the client is
// never stored; TokenHash is its SHA-256.
type Token struct {
	ID         uint      `gorm:"primaryKey"`
	TokenHash  string    `gorm:"size:64;uniqueIndex;not null"`
	CustomerID uint      `gorm:"index;not null"`
	Type       TokenType `gorm:"size:32;index;not null"`
	ExpiresAt  time.Time `gorm:"index;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (t *Token) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
