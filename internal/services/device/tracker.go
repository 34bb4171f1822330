// Package device tracks primary-login failures per device/browser pair,
// independent of the store being targeted.
package device

import (
	"context"
	"errors"
	"time"

	"freshcart/internal/metrics"
	"freshcart/internal/models"
	"freshcart/internal/repositories"
	"freshcart/internal/services/lockout"

	"go.uber.org/zap"
)

// Gate is the outcome of CheckGate.
type Gate int

const (
	GatePass Gate = iota
	GateLocked
	GateBlocked
)

// State is the lock state reported back to the client.
type State struct {
	Locked    bool
	Blocked   bool
	LockUntil *time.Time
}

func stateOf(rec *models.DeviceFailureRecord) State {
	return State{Locked: rec.IsLocked, Blocked: rec.IsBlocked, LockUntil: rec.LockUntil}
}

type Tracker interface {
	// RecordFailure counts a primary failure and returns the new state.
	RecordFailure(ctx context.Context, key models.DeviceKey) (State, error)
	// CheckGate decides whether the device may attempt a login. An expired
	// lock is cleared on the way.
	CheckGate(ctx context.Context, key models.DeviceKey) (Gate, State, error)
	// Clear drops the record after primary validation succeeds.
	Clear(ctx context.Context, key models.DeviceKey) error
	// ForceBlock blocks the device immediately.
	ForceBlock(ctx context.Context, key models.DeviceKey) error
}

type tracker struct {
	repo   repositories.DeviceFailureRepository
	policy lockout.Policy
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Tracker.
type Option func(*tracker)

// WithClock replaces the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(t *tracker) { t.now = now }
}

func NewTracker(repo repositories.DeviceFailureRepository, policy lockout.Policy, logger *zap.Logger, opts ...Option) Tracker {
	t := &tracker{repo: repo, policy: policy, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *tracker) RecordFailure(ctx context.Context, key models.DeviceKey) (State, error) {
	var event lockout.Event
	rec, err := t.repo.Mutate(ctx, key, func(rec *models.DeviceFailureRecord) error {
		state, _ := t.policy.Refresh(rec.LockState(), t.now())
		state, event = t.policy.RecordFailure(state, t.now())
		rec.SetLockState(state)
		return nil
	})
	if err != nil {
		return State{}, err
	}

	switch event {
	case lockout.EventLocked:
		metrics.LockoutsTotal.WithLabelValues("device").Inc()
		t.logger.Warn("device locked",
			zap.String("device_id", key.DeviceID),
			zap.Timep("lock_until", rec.LockUntil))
	case lockout.EventBlocked:
		metrics.BlocksTotal.WithLabelValues("device", "failures").Inc()
		t.logger.Warn("device blocked", zap.String("device_id", key.DeviceID))
	}
	return stateOf(rec), nil
}

func (t *tracker) CheckGate(ctx context.Context, key models.DeviceKey) (Gate, State, error) {
	rec, err := t.repo.Get(ctx, key)
	if errors.Is(err, repositories.ErrNotFound) {
		// First sighting: create the neutral record.
		rec, err = t.repo.Mutate(ctx, key, func(*models.DeviceFailureRecord) error { return nil })
		if err != nil {
			return GatePass, State{}, err
		}
		return GatePass, stateOf(rec), nil
	}
	if err != nil {
		return GatePass, State{}, err
	}

	if _, expired := t.policy.Refresh(rec.LockState(), t.now()); expired {
		rec, err = t.repo.Mutate(ctx, key, func(rec *models.DeviceFailureRecord) error {
			state, _ := t.policy.Refresh(rec.LockState(), t.now())
			rec.SetLockState(state)
			return nil
		})
		if err != nil {
			return GatePass, State{}, err
		}
	}

	switch {
	case rec.IsBlocked:
		return GateBlocked, stateOf(rec), nil
	case rec.LockState().LockedAt(t.now()):
		return GateLocked, stateOf(rec), nil
	default:
		return GatePass, stateOf(rec), nil
	}
}

func (t *tracker) Clear(ctx context.Context, key models.DeviceKey) error {
	return t.repo.Delete(ctx, key)
}

func (t *tracker) ForceBlock(ctx context.Context, key models.DeviceKey) error {
	_, err := t.repo.Mutate(ctx, key, func(rec *models.DeviceFailureRecord) error {
		rec.SetLockState(t.policy.Block(rec.LockState()))
		return nil
	})
	if err != nil {
		return err
	}
	metrics.BlocksTotal.WithLabelValues("device", "ip_reputation").Inc()
	t.logger.Warn("device blocked", zap.String("device_id", key.DeviceID), zap.String("reason", "ip_reputation"))
	return nil
}
