package models

import "time"

// LockState is the two-tier failure counter shared by devices, shop-owner
// login sessions and customers: failures lock, repeated locks block.
type LockState struct {
	FailedAttempts int
	FailCount      int
	Locked         bool
	Blocked        bool
	LockUntil      *time.Time
}

// LockedAt reports whether the state is an unexpired lock at now.
func (s LockState) LockedAt(now time.Time) bool {
	return s.Locked && s.LockUntil != nil && now.Before(*s.LockUntil)
}
