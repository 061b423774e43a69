package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dn0sh/travel-content-bot/internal/database/models"
)

type fakePendingLister struct {
	posts []models.Post
	err   error
}

func (f *fakePendingLister) ListScheduledPending(_ context.Context) ([]models.Post, error) {
	return f.posts, f.err
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestNew_RequiresFireFunc(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestSchedule_FiresDueJob(t *testing.T) {
	var fired atomic.Int64
	s, err := New(func(_ context.Context, postID int64) error {
		fired.Store(postID)
		return nil
	})
	require.NoError(t, err)
	defer s.Stop()

	s.Schedule(time.Now().Add(20*time.Millisecond), 42)
	waitFor(t, time.Second, func() bool { return fired.Load() == 42 })
	assert.Equal(t, 0, s.Pending())
}

func TestSchedule_OverdueFiresImmediately(t *testing.T) {
	var fired atomic.Bool
	s, err := New(func(context.Context, int64) error {
		fired.Store(true)
		return nil
	})
	require.NoError(t, err)
	defer s.Stop()

	s.Schedule(time.Now().Add(-time.Hour), 1)
	waitFor(t, time.Second, func() bool { return fired.Load() })
}

func TestCancel_PreventsFiring(t *testing.T) {
	var fired atomic.Bool
	s, err := New(func(context.Context, int64) error {
		fired.Store(true)
		return nil
	})
	require.NoError(t, err)
	defer s.Stop()

	h := s.Schedule(time.Now().Add(time.Hour), 7)
	assert.Equal(t, 1, s.Pending())

	s.Cancel(h)
	assert.Equal(t, 0, s.Pending())
	assert.False(t, fired.Load())
}

func TestCancel_UnknownHandleIsNoop(t *testing.T) {
	s, err := New(func(context.Context, int64) error { return nil })
	require.NoError(t, err)
	defer s.Stop()

	s.Cancel(Handle{id: 999})
}

func TestCancelPost_RemovesAllJobsForPost(t *testing.T) {
	s, err := New(func(context.Context, int64) error { return nil })
	require.NoError(t, err)
	defer s.Stop()

	s.Schedule(time.Now().Add(time.Hour), 5)
	s.Schedule(time.Now().Add(2*time.Hour), 5)
	s.Schedule(time.Now().Add(time.Hour), 6)
	require.Equal(t, 3, s.Pending())

	assert.True(t, s.CancelPost(5))
	assert.Equal(t, 1, s.Pending())
	assert.False(t, s.CancelPost(5))
}

func TestFireError_DoesNotAffectOtherJobs(t *testing.T) {
	var mu sync.Mutex
	var fired []int64
	s, err := New(func(_ context.Context, postID int64) error {
		mu.Lock()
		fired = append(fired, postID)
		mu.Unlock()
		if postID == 1 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	defer s.Stop()

	s.Schedule(time.Now().Add(10*time.Millisecond), 1)
	s.Schedule(time.Now().Add(30*time.Millisecond), 2)

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 2
	})
}

func TestFirePanic_IsContained(t *testing.T) {
	var fired atomic.Bool
	s, err := New(func(_ context.Context, postID int64) error {
		if postID == 1 {
			panic("handler bug")
		}
		fired.Store(true)
		return nil
	})
	require.NoError(t, err)
	defer s.Stop()

	s.Schedule(time.Now().Add(10*time.Millisecond), 1)
	s.Schedule(time.Now().Add(30*time.Millisecond), 2)
	waitFor(t, time.Second, func() bool { return fired.Load() })
}

func TestRestore_ReschedulesPendingPosts(t *testing.T) {
	var mu sync.Mutex
	fired := make(map[int64]bool)
	s, err := New(func(_ context.Context, postID int64) error {
		mu.Lock()
		fired[postID] = true
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	defer s.Stop()

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	lister := &fakePendingLister{posts: []models.Post{
		{ID: 1, IsScheduled: true, ScheduledAt: &past},
		{ID: 2, IsScheduled: true, ScheduledAt: &future},
		{ID: 3, IsScheduled: true}, // missing scheduled_at, skipped
	}}

	restored, err := s.Restore(context.Background(), lister)
	require.NoError(t, err)
	assert.Equal(t, 2, restored)

	// The overdue post fires right away, the future one stays pending.
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fired[1]
	})
	assert.Equal(t, 1, s.Pending())
}

func TestRestore_PropagatesStoreError(t *testing.T) {
	s, err := New(func(context.Context, int64) error { return nil })
	require.NoError(t, err)
	defer s.Stop()

	_, err = s.Restore(context.Background(), &fakePendingLister{err: errors.New("db down")})
	assert.Error(t, err)
}

func TestStop_WaitsForInflightFiring(t *testing.T) {
	started := make(chan struct{})
	var done atomic.Bool
	var ctxErr error
	s, err := New(func(ctx context.Context, _ int64) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		ctxErr = ctx.Err()
		done.Store(true)
		return nil
	})
	require.NoError(t, err)

	s.Schedule(time.Now(), 1)
	<-started
	s.Stop()
	assert.True(t, done.Load())
	// The firing context must stay live until the in-flight firing
	// finishes; shutdown must not abort a publish mid-send.
	assert.NoError(t, ctxErr)
}
