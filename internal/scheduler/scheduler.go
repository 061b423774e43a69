// Package scheduler implements an in-process one-shot job scheduler for
// post publications. It keeps no durable state of its own: pending jobs are
// derived from the post store at startup via Restore, so a restart can never
// desync scheduler bookkeeping from the posts' actual lifecycle state.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/dn0sh/travel-content-bot/internal/database/models"
)

// FireFunc executes one firing attempt for a post. Errors are logged by the
// scheduler and never stop other jobs.
type FireFunc func(ctx context.Context, postID int64) error

// PendingLister supplies the posts that still await publication, used by
// startup recovery.
type PendingLister interface {
	ListScheduledPending(ctx context.Context) ([]models.Post, error)
}

// Handle identifies a scheduled job for cancellation.
type Handle struct {
	id uint64
}

type job struct {
	id     uint64
	postID int64
	timer  *time.Timer
}

// Scheduler maintains a set of pending one-shot jobs keyed by fire time.
// Each job runs on its own timer goroutine; firings of different jobs may
// overlap, and a single failing firing never affects the rest.
type Scheduler struct {
	fire FireFunc

	mu     sync.Mutex
	jobs   map[uint64]*job
	nextID uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler that invokes fire for every due job.
func New(fire FireFunc) (*Scheduler, error) {
	if fire == nil {
		return nil, fmt.Errorf("fire function cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		fire:   fire,
		jobs:   make(map[uint64]*job),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Schedule registers a one-shot job for the given post. Fire times in the
// past are accepted and fire as soon as possible: on restart, overdue posts
// must still be published rather than silently dropped.
func (s *Scheduler) Schedule(fireAt time.Time, postID int64) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	j := &job{id: s.nextID, postID: postID}

	delay := time.Until(fireAt)
	if delay < 0 {
		delay = 0
	}
	s.wg.Add(1)
	j.timer = time.AfterFunc(delay, func() { s.run(j.id) })
	s.jobs[j.id] = j

	log.Printf("[Scheduler Post:%d] Job %d scheduled for %s", postID, j.id, fireAt.Format(time.RFC3339))
	return Handle{id: j.id}
}

// Cancel removes a pending job. It is a no-op for unknown or already-fired
// handles, and is safe to call concurrently with a near-simultaneous firing:
// the handler's own published check on durable state is the final arbiter.
func (s *Scheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[h.id]; ok {
		if j.timer.Stop() {
			s.wg.Done()
		}
		delete(s.jobs, h.id)
		log.Printf("[Scheduler Post:%d] Job %d cancelled", j.postID, j.id)
	}
}

// CancelPost cancels every pending job for the given post id. Used when a
// scheduled post is deleted before its fire time. Reports whether at least
// one job was removed.
func (s *Scheduler) CancelPost(postID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancelled := false
	for id, j := range s.jobs {
		if j.postID == postID {
			if j.timer.Stop() {
				s.wg.Done()
			}
			delete(s.jobs, id)
			cancelled = true
			log.Printf("[Scheduler Post:%d] Job %d cancelled", j.postID, j.id)
		}
	}
	return cancelled
}

// Pending returns the number of jobs currently waiting to fire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Restore re-schedules every post that is still marked scheduled and not
// published. The owning process must call this once at startup; the
// scheduler itself holds no persistent state.
func (s *Scheduler) Restore(ctx context.Context, store PendingLister) (int, error) {
	posts, err := store.ListScheduledPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending posts: %w", err)
	}

	restored := 0
	for _, post := range posts {
		if post.ScheduledAt == nil {
			log.Printf("[Scheduler Post:%d] Pending post has no scheduled_at, skipping", post.ID)
			continue
		}
		s.Schedule(*post.ScheduledAt, post.ID)
		restored++
	}
	if restored > 0 {
		log.Printf("[Scheduler] Restored %d pending job(s)", restored)
	}
	return restored, nil
}

// Stop cancels all pending timers and waits for in-flight firings to finish.
// The firing context stays live until the wait returns, so a publish that
// already started completes instead of being aborted mid-send.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, j := range s.jobs {
		if j.timer.Stop() {
			s.wg.Done()
		}
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.cancel()
}

// run executes one firing on the timer's goroutine. A job failure is logged
// and reported but must never crash the scheduler or block other jobs.
func (s *Scheduler) run(id uint64) {
	defer s.wg.Done()

	s.mu.Lock()
	j, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
	}
	s.mu.Unlock()
	if !ok {
		// Lost the race against Cancel.
		return
	}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic firing post %d: %v", j.postID, r)
			log.Printf("[Scheduler Post:%d] %v\n%s", j.postID, err, debug.Stack())
			sentry.CaptureException(err)
		}
	}()

	if err := s.fire(s.ctx, j.postID); err != nil {
		log.Printf("[Scheduler Post:%d] Firing failed: %v", j.postID, err)
		sentry.CaptureException(fmt.Errorf("firing post %d: %w", j.postID, err))
	}
}
