package models

import "time"

type AttemptStatus string

const (
	AttemptPending  AttemptStatus = "pending"
	AttemptOTPSent  AttemptStatus = "otp_sent"
	AttemptVerified AttemptStatus = "verified"
)

// LoginAttemptSession holds the per-store OTP and secondary-validation
// state. There is at most one per store.
type LoginAttemptSession struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	StoreID string `gorm:"size:64;uniqueIndex;not null" json:"store_id"`

	OTPHash           string     `gorm:"size:100" json:"-"`
	OTPExpires        *time.Time `json:"otp_expires"`
	OTPFailedAttempts int        `gorm:"default:0" json:"otp_failed_attempts"`
	EncryptCodeHash   string     `gorm:"size:100;not null" json:"-"`

	SecondaryFailedAttempts int        `gorm:"default:0" json:"secondary_failed_attempts"`
	SecondaryFailCount      int        `gorm:"default:0" json:"secondary_fail_count"`
	SecondaryIsLocked       bool       `gorm:"default:false" json:"secondary_is_locked"`
	SecondaryLockUntil      *time.Time `json:"secondary_lock_until"`
	SecondaryIsBlocked      bool       `gorm:"default:false" json:"secondary_is_blocked"`

	ResendOTPLockUntil *time.Time    `json:"resend_otp_lock_until"`
	Status             AttemptStatus `gorm:"size:16;default:'pending'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *LoginAttemptSession) LockState() LockState {
	return LockState{
		FailedAttempts: s.SecondaryFailedAttempts,
		FailCount:      s.SecondaryFailCount,
		Locked:         s.SecondaryIsLocked,
		Blocked:        s.SecondaryIsBlocked,
		LockUntil:      s.SecondaryLockUntil,
	}
}

func (s *LoginAttemptSession) SetLockState(st LockState) {
	s.SecondaryFailedAttempts = st.FailedAttempts
	s.SecondaryFailCount = st.FailCount
	s.SecondaryIsLocked = st.Locked
	s.SecondaryIsBlocked = st.Blocked
	s.SecondaryLockUntil = st.LockUntil
}

// ClearOTP drops the pending OTP and its attempt counter.
func (s *LoginAttemptSession) ClearOTP() {
	s.OTPHash = ""
	s.OTPExpires = nil
	s.OTPFailedAttempts = 0
}

// ResetSecondary clears failure counters and any lock. A block is kept.
func (s *LoginAttemptSession) ResetSecondary() {
	s.SecondaryFailedAttempts = 0
	s.SecondaryFailCount = 0
	s.SecondaryIsLocked = false
	s.SecondaryLockUntil = nil
}
