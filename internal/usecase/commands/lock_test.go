//go:build unit

package commands_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"packsend-service/internal/domain/lease"
	"packsend-service/internal/infra"
	"packsend-service/internal/infra/metrics"
	"packsend-service/internal/pkg/clock"
	"packsend-service/internal/pkg/errs"
	"packsend-service/internal/usecase/commands"
	"packsend-service/tests/common/fakestore"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

const transferID = int64(42)

type staffNames map[string]string

func (s staffNames) ResolveName(_ context.Context, staffID string) (string, error) {
	name, ok := s[staffID]
	if !ok {
		return "", infra.WrapRepoErr("staff not found", errors.New("no rows"), infra.KindNotFound)
	}
	return name, nil
}

type lockFixture struct {
	store   *fakestore.Store
	clock   *clock.MockClock
	metrics *metrics.Metrics
	locks   commands.LockCommands
}

func newLockFixture(t *testing.T, mutate ...func(*commands.LockConfig)) *lockFixture {
	t.Helper()
	cfg := commands.LockConfig{
		TTL:            5 * time.Minute,
		TakeoverWindow: 60 * time.Second,
		TimeoutAccept:  true,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	f := &lockFixture{
		store:   fakestore.New(),
		clock:   clock.NewMockClock(t0),
		metrics: metrics.New(),
	}
	staff := staffNames{"staff-a": "Aroha Smith", "staff-b": "Ben Carter"}
	f.locks = commands.NewLockUseCase(f.store, staff, f.clock, f.metrics, cfg)
	return f
}

func (f *lockFixture) acquire(t *testing.T, actor string) *commands.LeaseView {
	t.Helper()
	view, err := f.locks.Acquire(context.Background(), transferID, actor, "tab-1", 0)
	require.NoError(t, err)
	return view
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, commands.LockErrorCode(err), "got %v", err)
}

// =============================================================================
// Acquire / Heartbeat / Release
// =============================================================================

func TestLock_TransferScenario(t *testing.T) {
	ctx := context.Background()
	f := newLockFixture(t)

	held := f.acquire(t, "staff-a")
	assert.Equal(t, "staff-a", held.HolderID)
	assert.Equal(t, t0.Add(5*time.Minute), held.ExpiresAt)

	f.clock.Add(10 * time.Second)
	_, err := f.locks.Acquire(ctx, transferID, "staff-b", "tab-9", 0)
	assertCode(t, err, "LOCK_CONFLICT")

	conflict, ok := commands.AsLockConflict(err)
	require.True(t, ok)
	assert.Equal(t, "staff-a", conflict.HolderID)
	assert.Equal(t, "Aroha Smith", conflict.HolderName)
	assert.Equal(t, t0.Add(5*time.Minute), conflict.ExpiresAt)

	_, err = f.locks.Heartbeat(ctx, transferID, "staff-b")
	assertCode(t, err, "NOT_HOLDER")

	beat, err := f.locks.Heartbeat(ctx, transferID, "staff-a")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(10*time.Second+5*time.Minute), beat.ExpiresAt)
	assert.Equal(t, t0, beat.AcquiredAt)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LockOpsTotal.WithLabelValues("acquire", "LOCK_CONFLICT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LockOpsTotal.WithLabelValues("heartbeat", "NOT_HOLDER")))
}

func TestLock_SameActorReentry(t *testing.T) {
	f := newLockFixture(t)
	f.acquire(t, "staff-a")

	f.clock.Add(time.Minute)
	again, err := f.locks.Acquire(context.Background(), transferID, "staff-a", "tab-2", 0)
	require.NoError(t, err)

	assert.Equal(t, t0, again.AcquiredAt, "re-entry keeps the original acquisition time")
	assert.Equal(t, t0.Add(6*time.Minute), again.ExpiresAt)
	assert.Equal(t, "tab-2", again.Fingerprint)
}

func TestLock_ExpiredLeaseCanBeTaken(t *testing.T) {
	ctx := context.Background()
	f := newLockFixture(t)

	_, err := f.locks.Acquire(ctx, transferID, "staff-a", "", 30*time.Second)
	require.NoError(t, err)

	f.clock.Add(30 * time.Second)
	view, err := f.locks.Acquire(ctx, transferID, "staff-b", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "staff-b", view.HolderID)
	assert.Equal(t, f.clock.Now(), view.AcquiredAt)
}

func TestLock_UnknownHolderNameFallsBackToID(t *testing.T) {
	ctx := context.Background()
	f := newLockFixture(t)
	f.acquire(t, "staff-z")

	_, err := f.locks.Acquire(ctx, transferID, "staff-a", "", 0)
	conflict, ok := commands.AsLockConflict(err)
	require.True(t, ok)
	assert.Equal(t, "staff-z", conflict.HolderName)
}

func TestLock_MutualExclusion(t *testing.T) {
	f := newLockFixture(t)

	const contenders = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []string
		conflicts int
	)
	for i := range contenders {
		wg.Add(1)
		go func(actor string) {
			defer wg.Done()
			_, err := f.locks.Acquire(context.Background(), transferID, actor, "", 0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, actor)
			case errs.Is(err, commands.ErrLockConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(fmt.Sprintf("staff-%02d", i))
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, contenders-1, conflicts)
	assert.Equal(t, winners[0], f.store.Lease(transferID).HolderID())
}

func TestLock_InvalidInput(t *testing.T) {
	f := newLockFixture(t)

	_, err := f.locks.Acquire(context.Background(), 0, "staff-a", "", 0)
	assertCode(t, err, "VALIDATION")

	_, err = f.locks.Acquire(context.Background(), transferID, "  ", "", 0)
	assertCode(t, err, "VALIDATION")
}

func TestLock_Release(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name         string
		caller       string
		wantReleased bool
		wantHolder   string
	}{
		{name: "holder releases", caller: "staff-a", wantReleased: true},
		{name: "non-holder is a no-op", caller: "staff-b", wantReleased: false, wantHolder: "staff-a"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newLockFixture(t)
			f.acquire(t, "staff-a")

			released, err := f.locks.Release(ctx, transferID, tc.caller)
			require.NoError(t, err)
			assert.Equal(t, tc.wantReleased, released)

			current := f.store.Lease(transferID)
			if tc.wantHolder == "" {
				assert.Nil(t, current)
				return
			}
			require.NotNil(t, current)
			assert.Equal(t, tc.wantHolder, current.HolderID())
		})
	}

	t.Run("releasing twice is idempotent", func(t *testing.T) {
		f := newLockFixture(t)
		f.acquire(t, "staff-a")
		_, err := f.locks.Release(ctx, transferID, "staff-a")
		require.NoError(t, err)
		released, err := f.locks.Release(ctx, transferID, "staff-a")
		require.NoError(t, err)
		assert.False(t, released)
	})
}

// =============================================================================
// Takeover negotiation
// =============================================================================

func TestLock_RequestTakeover(t *testing.T) {
	ctx := context.Background()

	t.Run("nobody holds the lease", func(t *testing.T) {
		f := newLockFixture(t)
		_, err := f.locks.RequestTakeover(ctx, transferID, "staff-b")
		assertCode(t, err, "NO_ACTIVE_LEASE")
	})

	t.Run("requester already holds it", func(t *testing.T) {
		f := newLockFixture(t)
		f.acquire(t, "staff-a")
		_, err := f.locks.RequestTakeover(ctx, transferID, "staff-a")
		assertCode(t, err, "ALREADY_HOLDER")
	})

	t.Run("pending request blocks another", func(t *testing.T) {
		f := newLockFixture(t)
		f.acquire(t, "staff-a")

		req, err := f.locks.RequestTakeover(ctx, transferID, "staff-b")
		require.NoError(t, err)
		assert.Equal(t, int64(1), req.ID)
		assert.Equal(t, "staff-a", req.HolderID)
		assert.Equal(t, lease.TakeoverPending, req.Status)
		assert.Equal(t, t0.Add(60*time.Second), req.ExpiresAt)

		_, err = f.locks.RequestTakeover(ctx, transferID, "staff-c")
		assertCode(t, err, "ALREADY_PENDING")
	})
}

func TestLock_RespondTakeover(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*lockFixture, int64) {
		f := newLockFixture(t)
		f.acquire(t, "staff-a")
		f.clock.Add(5 * time.Second)
		req, err := f.locks.RequestTakeover(ctx, transferID, "staff-b")
		require.NoError(t, err)
		f.clock.Add(5 * time.Second)
		return f, req.ID
	}

	t.Run("accept hands the lease over", func(t *testing.T) {
		f, id := setup(t)

		view, err := f.locks.RespondTakeover(ctx, id, "staff-a", true)
		require.NoError(t, err)
		assert.Equal(t, lease.TakeoverAccepted, view.Status)
		require.NotNil(t, view.RespondedAt)

		current := f.store.Lease(transferID)
		assert.Equal(t, "staff-b", current.HolderID())
		assert.Equal(t, f.clock.Now().Add(5*time.Minute), current.ExpiresAt())

		_, err = f.locks.Heartbeat(ctx, transferID, "staff-a")
		assertCode(t, err, "NOT_HOLDER")
	})

	t.Run("decline keeps the holder", func(t *testing.T) {
		f, id := setup(t)

		view, err := f.locks.RespondTakeover(ctx, id, "staff-a", false)
		require.NoError(t, err)
		assert.Equal(t, lease.TakeoverDeclined, view.Status)
		assert.Equal(t, "staff-a", f.store.Lease(transferID).HolderID())
	})

	t.Run("only the holder may respond", func(t *testing.T) {
		f, id := setup(t)
		_, err := f.locks.RespondTakeover(ctx, id, "staff-b", true)
		assertCode(t, err, "NOT_HOLDER")
		assert.True(t, f.store.Takeover(id).IsPending())
	})

	t.Run("resolved requests cannot be answered again", func(t *testing.T) {
		f, id := setup(t)
		_, err := f.locks.RespondTakeover(ctx, id, "staff-a", false)
		require.NoError(t, err)
		_, err = f.locks.RespondTakeover(ctx, id, "staff-a", true)
		assertCode(t, err, "TAKEOVER_NOT_PENDING")
	})

	t.Run("unknown request", func(t *testing.T) {
		f, _ := setup(t)
		_, err := f.locks.RespondTakeover(ctx, 999, "staff-a", true)
		assertCode(t, err, "TAKEOVER_NOT_FOUND")
	})

	t.Run("late answer expires the request and transfers the lease", func(t *testing.T) {
		f, id := setup(t)
		f.clock.Add(time.Minute)

		view, err := f.locks.RespondTakeover(ctx, id, "staff-a", false)
		assertCode(t, err, "TAKEOVER_EXPIRED")
		require.NotNil(t, view)
		assert.Equal(t, lease.TakeoverExpired, view.Status)

		assert.Equal(t, lease.TakeoverExpired, f.store.Takeover(id).Status())
		assert.Equal(t, "staff-b", f.store.Lease(transferID).HolderID())
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TakeoversTotal.WithLabelValues("expired")))
	})
}

func TestLock_TakeoverTimeoutIsSettledLazily(t *testing.T) {
	ctx := context.Background()
	f := newLockFixture(t)
	f.acquire(t, "staff-a")
	req, err := f.locks.RequestTakeover(ctx, transferID, "staff-b")
	require.NoError(t, err)

	f.clock.Add(61 * time.Second)

	status, err := f.locks.Status(ctx, transferID)
	require.NoError(t, err)
	require.NotNil(t, status.Holder)
	assert.Equal(t, "staff-b", status.Holder.HolderID)
	assert.Equal(t, "Ben Carter", status.Holder.HolderName)
	assert.Nil(t, status.Pending)
	assert.Equal(t, lease.TakeoverExpired, f.store.Takeover(req.ID).Status())

	_, err = f.locks.Heartbeat(ctx, transferID, "staff-a")
	assertCode(t, err, "NOT_HOLDER")
}

func TestLock_TakeoverTimeoutWithoutImplicitAccept(t *testing.T) {
	ctx := context.Background()
	f := newLockFixture(t, func(c *commands.LockConfig) { c.TimeoutAccept = false })
	f.acquire(t, "staff-a")
	req, err := f.locks.RequestTakeover(ctx, transferID, "staff-b")
	require.NoError(t, err)

	f.clock.Add(61 * time.Second)
	_, err = f.locks.Heartbeat(ctx, transferID, "staff-a")
	require.NoError(t, err)

	assert.Equal(t, lease.TakeoverExpired, f.store.Takeover(req.ID).Status())
	assert.Equal(t, "staff-a", f.store.Lease(transferID).HolderID())
}

func TestLock_CancelTakeover(t *testing.T) {
	ctx := context.Background()
	f := newLockFixture(t)
	f.acquire(t, "staff-a")
	req, err := f.locks.RequestTakeover(ctx, transferID, "staff-b")
	require.NoError(t, err)

	_, err = f.locks.CancelTakeover(ctx, req.ID, "staff-c")
	assertCode(t, err, "TAKEOVER_NOT_FOUND")

	view, err := f.locks.CancelTakeover(ctx, req.ID, "staff-b")
	require.NoError(t, err)
	assert.Equal(t, lease.TakeoverCancelled, view.Status)

	_, err = f.locks.CancelTakeover(ctx, req.ID, "staff-b")
	assertCode(t, err, "TAKEOVER_NOT_PENDING")

	// A new request can be raised once the previous one is resolved.
	_, err = f.locks.RequestTakeover(ctx, transferID, "staff-b")
	require.NoError(t, err)
}

func TestLock_Status(t *testing.T) {
	ctx := context.Background()
	f := newLockFixture(t)

	status, err := f.locks.Status(ctx, transferID)
	require.NoError(t, err)
	assert.Nil(t, status.Holder)
	assert.Nil(t, status.Pending)

	f.acquire(t, "staff-a")
	_, err = f.locks.RequestTakeover(ctx, transferID, "staff-b")
	require.NoError(t, err)

	status, err = f.locks.Status(ctx, transferID)
	require.NoError(t, err)
	require.NotNil(t, status.Holder)
	assert.Equal(t, "Aroha Smith", status.Holder.HolderName)
	require.NotNil(t, status.Pending)
	assert.Equal(t, "staff-b", status.Pending.RequesterID)

	_, err = f.locks.Status(ctx, 0)
	assertCode(t, err, "VALIDATION")
}

// =============================================================================
// Sweep
// =============================================================================

func TestLock_Sweep(t *testing.T) {
	ctx := context.Background()

	t.Run("expires overdue takeovers then purges leases", func(t *testing.T) {
		f := newLockFixture(t)
		f.acquire(t, "staff-a")
		_, err := f.locks.RequestTakeover(ctx, transferID, "staff-b")
		require.NoError(t, err)

		_, err = f.locks.Acquire(ctx, 43, "staff-c", "", time.Second)
		require.NoError(t, err)

		f.clock.Add(61 * time.Second)
		result, err := f.locks.Sweep(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, result.ExpiredTakeovers)
		assert.Equal(t, 1, result.TransferredLeases)
		assert.Equal(t, int64(1), result.PurgedLeases)
		assert.Equal(t, "staff-b", f.store.Lease(transferID).HolderID())
		assert.Nil(t, f.store.Lease(43))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ExpiredTotal))
	})

	t.Run("never steals from a later holder", func(t *testing.T) {
		f := newLockFixture(t)
		_, err := f.locks.Acquire(ctx, transferID, "staff-a", "", 10*time.Second)
		require.NoError(t, err)
		f.clock.Add(time.Second)
		_, err = f.locks.RequestTakeover(ctx, transferID, "staff-b")
		require.NoError(t, err)

		f.clock.Add(20 * time.Second)
		f.acquire(t, "staff-c")

		f.clock.Add(50 * time.Second)
		result, err := f.locks.Sweep(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, result.ExpiredTakeovers)
		assert.Equal(t, 0, result.TransferredLeases)
		assert.Equal(t, "staff-c", f.store.Lease(transferID).HolderID())
	})

	t.Run("nothing to do", func(t *testing.T) {
		f := newLockFixture(t)
		result, err := f.locks.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, &commands.SweepResult{}, result)
	})
}
