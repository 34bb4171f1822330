package models

import "time"

// DeviceKey identifies a device/browser pair. At least one part is set.
type DeviceKey struct {
	DeviceID     string
	BrowserToken string
}

func (k DeviceKey) Valid() bool {
	return k.DeviceID != "" || k.BrowserToken != ""
}

// DeviceFailureRecord counts primary-login failures per device, regardless
// of the store being targeted.
type DeviceFailureRecord struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	DeviceID       string     `gorm:"size:128;not null;default:'';uniqueIndex:idx_device_browser" json:"device_id"`
	BrowserToken   string     `gorm:"size:256;not null;default:'';uniqueIndex:idx_device_browser" json:"browser_token"`
	FailedAttempts int        `gorm:"default:0" json:"failed_attempts"`
	IsLocked       bool       `gorm:"default:false" json:"is_locked"`
	IsBlocked      bool       `gorm:"default:false" json:"is_blocked"`
	LockUntil      *time.Time `json:"lock_until"`
	FailCount      int        `gorm:"default:0" json:"fail_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (r *DeviceFailureRecord) Key() DeviceKey {
	return DeviceKey{DeviceID: r.DeviceID, BrowserToken: r.BrowserToken}
}

func (r *DeviceFailureRecord) LockState() LockState {
	return LockState{
		FailedAttempts: r.FailedAttempts,
		FailCount:      r.FailCount,
		Locked:         r.IsLocked,
		Blocked:        r.IsBlocked,
		LockUntil:      r.LockUntil,
	}
}

func (r *DeviceFailureRecord) SetLockState(s LockState) {
	r.FailedAttempts = s.FailedAttempts
	r.FailCount = s.FailCount
	r.IsLocked = s.Locked
	r.IsBlocked = s.Blocked
	r.LockUntil = s.LockUntil
}
