package device

import (
	"context"
	"sync"
	"testing"
	"time"

	"freshcart/internal/models"
	"freshcart/internal/repositories"
	"freshcart/internal/repositories/memory"
	"freshcart/internal/services/lockout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var policy = lockout.Policy{MaxFailures: 3, LockDuration: 30 * time.Minute, MaxLocks: 2}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTracker(t *testing.T) (Tracker, repositories.DeviceFailureRepository, *clock) {
	t.Helper()
	repo := memory.NewStore().Devices()
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	return NewTracker(repo, policy, zap.NewNop(), WithClock(c.now)), repo, c
}

var key = models.DeviceKey{DeviceID: "dev-1", BrowserToken: "browser-1"}

func TestTracker_ThreeFailuresLock(t *testing.T) {
	tr, _, c := newTracker(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		st, err := tr.RecordFailure(ctx, key)
		require.NoError(t, err)
		assert.False(t, st.Locked)
	}

	st, err := tr.RecordFailure(ctx, key)
	require.NoError(t, err)
	assert.True(t, st.Locked)
	require.NotNil(t, st.LockUntil)
	assert.Equal(t, c.t.Add(30*time.Minute), *st.LockUntil)

	// Still inside the window: rejected regardless of credentials.
	c.t = c.t.Add(10 * time.Minute)
	gate, _, err := tr.CheckGate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, GateLocked, gate)
}

func TestTracker_ExpiredLockClearsOnGate(t *testing.T) {
	tr, repo, c := newTracker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := tr.RecordFailure(ctx, key)
		require.NoError(t, err)
	}

	c.t = c.t.Add(31 * time.Minute)
	gate, st, err := tr.CheckGate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, GatePass, gate)
	assert.False(t, st.Locked)

	rec, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, rec.IsLocked)
	assert.Nil(t, rec.LockUntil)
	assert.Equal(t, 0, rec.FailedAttempts)
	assert.Equal(t, 1, rec.FailCount)
}

func TestTracker_SecondLockBlocks(t *testing.T) {
	tr, _, c := newTracker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := tr.RecordFailure(ctx, key)
		require.NoError(t, err)
	}
	c.t = c.t.Add(31 * time.Minute)

	var st State
	var err error
	for i := 0; i < 3; i++ {
		st, err = tr.RecordFailure(ctx, key)
		require.NoError(t, err)
	}
	assert.True(t, st.Blocked)
	assert.False(t, st.Locked)
	assert.Nil(t, st.LockUntil)

	// No unlock transition: a day later it is still blocked.
	c.t = c.t.Add(24 * time.Hour)
	gate, _, err := tr.CheckGate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, GateBlocked, gate)
}

func TestTracker_GateCreatesNeutralRecord(t *testing.T) {
	tr, repo, _ := newTracker(t)
	ctx := context.Background()

	gate, _, err := tr.CheckGate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, GatePass, gate)

	rec, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.FailedAttempts)
	assert.False(t, rec.IsLocked)
}

func TestTracker_ClearIsIdempotent(t *testing.T) {
	tr, repo, _ := newTracker(t)
	ctx := context.Background()

	_, err := tr.RecordFailure(ctx, key)
	require.NoError(t, err)

	require.NoError(t, tr.Clear(ctx, key))
	require.NoError(t, tr.Clear(ctx, key))

	_, err = repo.Get(ctx, key)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestTracker_ForceBlock(t *testing.T) {
	tr, _, _ := newTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.ForceBlock(ctx, models.DeviceKey{BrowserToken: "b-only"}))
	gate, st, err := tr.CheckGate(ctx, models.DeviceKey{BrowserToken: "b-only"})
	require.NoError(t, err)
	assert.Equal(t, GateBlocked, gate)
	assert.True(t, st.Blocked)
}

func TestTracker_ConcurrentFailuresCannotSkipThreshold(t *testing.T) {
	tr, repo, _ := newTracker(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tr.RecordFailure(ctx, key)
		}()
	}
	wg.Wait()

	rec, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, rec.IsLocked)
	assert.Equal(t, 1, rec.FailCount)
}
