// Package lockout holds the failure-counting state machine shared by the
// device tracker, the shop-owner password step and customer login:
//
//	clean -> (MaxFailures failures) -> locked(LockDuration) -> clean
//	                                -> (MaxLocks locks)     -> blocked
//
// A zero MaxLocks disables the block tier.
package lockout

import (
	"time"

	"freshcart/internal/models"
)

// Event is what a recorded failure caused.
type Event int

const (
	EventNone Event = iota
	EventLocked
	EventBlocked
)

type Policy struct {
	MaxFailures  int
	LockDuration time.Duration
	MaxLocks     int
}

// RecordFailure counts one failure against s at now. Reaching MaxFailures
// locks and resets the counter; reaching MaxLocks lock events blocks, which
// clears the lock.
func (p Policy) RecordFailure(s models.LockState, now time.Time) (models.LockState, Event) {
	if s.Blocked {
		return s, EventNone
	}

	s.FailedAttempts++
	if s.FailedAttempts < p.MaxFailures {
		return s, EventNone
	}

	until := now.Add(p.LockDuration)
	s.Locked = true
	s.LockUntil = &until
	s.FailedAttempts = 0
	s.FailCount++

	if p.MaxLocks > 0 && s.FailCount >= p.MaxLocks {
		s.Blocked = true
		s.Locked = false
		s.LockUntil = nil
		return s, EventBlocked
	}
	return s, EventLocked
}

// Refresh clears a lock whose expiry has passed. It reports whether s
// changed.
func (p Policy) Refresh(s models.LockState, now time.Time) (models.LockState, bool) {
	if !s.Locked || s.LockedAt(now) {
		return s, false
	}
	s.Locked = false
	s.LockUntil = nil
	s.FailedAttempts = 0
	return s, true
}

// Block forces the terminal state.
func (p Policy) Block(s models.LockState) models.LockState {
	s.Blocked = true
	s.Locked = false
	s.LockUntil = nil
	return s
}

// Reset clears counters and any lock. A block is kept.
func (p Policy) Reset(s models.LockState) models.LockState {
	return models.LockState{Blocked: s.Blocked}
}
