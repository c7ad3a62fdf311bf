package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jorge-rr00/newbackend/pkg/adapters/memory"
	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/ports"
	"github.com/jorge-rr00/newbackend/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SerializesTurnsPerSession(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()
	id := "race-test"

	_, err := manager.Create(ctx, id)
	require.NoError(t, err)

	var inFlight, maxInFlight int32
	var wg sync.WaitGroup
	const turns = 10

	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, id, func(ctx context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				defer atomic.AddInt32(&inFlight, -1)
				for {
					m := atomic.LoadInt32(&maxInFlight)
					if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				return manager.Commit(ctx, id, domain.Commit{Turn: domain.Turn{
					Role: domain.RoleUser, Status: domain.EntryAccepted, Text: "q",
				}})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight, "at most one turn may run per session")

	loaded, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Len(t, loaded.Turns, turns)
	assert.Equal(t, 0, manager.ActiveLocks(), "lock entries must be garbage collected")
}

func TestManager_DifferentSessionsDoNotBlock(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = manager.WithLock(ctx, "a", func(context.Context) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	err := manager.WithLock(ctx, "b", func(context.Context) error { return nil })
	assert.NoError(t, err)
	close(done)
}

func TestManager_WaitHonorsContext(t *testing.T) {
	manager := session.NewManager(memory.NewStore())

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = manager.WithLock(context.Background(), "s", func(context.Context) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err := manager.WithLock(ctx, "s", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
}

func TestManager_EmptySessionID(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	err := manager.WithLock(context.Background(), "", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, domain.ErrEmptySessionID)
}

func TestManager_LoadOrCreate(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	first, err := manager.LoadOrCreate(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", first.ID)
	assert.False(t, first.Classified())

	require.NoError(t, manager.Commit(ctx, "fresh", domain.Commit{
		Turn:           domain.Turn{Role: domain.RoleUser, Status: domain.EntryAccepted, Text: "hola"},
		Classification: domain.DomainLegal,
	}))

	again, err := manager.LoadOrCreate(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, domain.DomainLegal, again.Classification)
	assert.Len(t, again.Turns, 1)
}

type countingLocker struct {
	locks, unlocks int32
}

func (c *countingLocker) Lock(_ context.Context, _ string, _ time.Duration) (ports.UnlockFunc, error) {
	atomic.AddInt32(&c.locks, 1)
	return func(context.Context) error {
		atomic.AddInt32(&c.unlocks, 1)
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &countingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Second))

	_, err := manager.Create(context.Background(), "dist")
	require.NoError(t, err)
	require.NoError(t, manager.Clear(context.Background(), "dist"))

	assert.Equal(t, int32(2), atomic.LoadInt32(&locker.locks))
	assert.Equal(t, int32(2), atomic.LoadInt32(&locker.unlocks))
}
