package models

import (
	"time"

	"gorm.io/gorm"
)

type AuthType string

const (
	AuthPassword AuthType = "password"
	AuthGoogle   AuthType = "google"
)

type Customer struct {
	gorm.Model
	Email         string   `gorm:"uniqueIndex;not null"`
	Phone         *string  `gorm:"uniqueIndex"`
	FirstName     string   `gorm:"not null;default:''"`
	LastName      string   `gorm:"not null;default:''"`
	PasswordHash  string   `json:"-"`
	AuthType      AuthType `gorm:"size:16;default:'password'"`
	GoogleSubject string   `gorm:"size:64;index"`
	EmailVerified bool     `gorm:"default:false"`

	FailedLoginAttempts int        `gorm:"default:0"`
	AccountLocked       bool       `gorm:"default:false"`
	LockUntil           *time.Time
	LastLoginAt         *time.Time
	LastLoginIP         string
	PasswordChangedAt   *time.Time

	StripeCustomerID string `gorm:"size:64"`
}

// HasPassword is false for accounts created through Google sign-in.
func (c *Customer) HasPassword() bool {
	return c.PasswordHash != ""
}

func (c *Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

func (c *Customer) LockState() LockState {
	return LockState{
		FailedAttempts: c.FailedLoginAttempts,
		Locked:         c.AccountLocked,
		LockUntil:      c.LockUntil,
	}
}

// SetLockState stores the counter. Customers have no block tier.
func (c *Customer) SetLockState(s LockState) {
	c.FailedLoginAttempts = s.FailedAttempts
	c.AccountLocked = s.Locked
	c.LockUntil = s.LockUntil
}
