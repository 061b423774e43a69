// Package stats periodically refreshes engagement numbers (views, comments,
// reactions) for published posts. It is deliberately decoupled from the
// publication path: a stats failure can never affect scheduling correctness.
package stats

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron"

	"github.com/dn0sh/travel-content-bot/internal/database"
)

// PostStats carries one message's engagement snapshot.
type PostStats struct {
	Views     int64          `json:"views"`
	Comments  int            `json:"comments"`
	Reactions map[string]int `json:"reactions"`
}

// ChannelStats fetches engagement numbers for a channel message.
type ChannelStats interface {
	FetchMessageStats(ctx context.Context, messageID int) (*PostStats, error)
}

// Poller runs the refresh on a cron schedule.
type Poller struct {
	repo    database.PostRepository
	fetcher ChannelStats
	cron    *cron.Cron
}

// NewPoller creates a poller with the given cron schedule spec
// (e.g. "@every 24h").
func NewPoller(repo database.PostRepository, fetcher ChannelStats, schedule string) (*Poller, error) {
	if repo == nil {
		return nil, fmt.Errorf("post repository cannot be nil")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("stats fetcher cannot be nil")
	}

	p := &Poller{repo: repo, fetcher: fetcher, cron: cron.New()}
	if err := p.cron.AddFunc(schedule, p.refresh); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}
	return p, nil
}

// Start begins the periodic refresh.
func (p *Poller) Start() {
	p.cron.Start()
	log.Println("[Stats] Poller started")
}

// Stop halts the cron loop; an in-flight refresh finishes on its own.
func (p *Poller) Stop() {
	p.cron.Stop()
}

// refresh walks the published posts and records fresh numbers. Per-post
// failures are logged and skipped.
func (p *Poller) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	posts, err := p.repo.ListPublished(ctx)
	if err != nil {
		log.Printf("[Stats] Failed to list published posts: %v", err)
		return
	}

	updated := 0
	for _, post := range posts {
		if post.ChannelMessageID == 0 {
			log.Printf("[Stats Post:%d] Published post has no channel message id, skipping", post.ID)
			continue
		}

		snapshot, err := p.fetcher.FetchMessageStats(ctx, post.ChannelMessageID)
		if err != nil {
			log.Printf("[Stats Post:%d] Fetch failed: %v", post.ID, err)
			continue
		}

		if err := p.repo.UpdateStats(ctx, post.ID, snapshot.Views, snapshot.Comments, snapshot.Reactions); err != nil {
			log.Printf("[Stats Post:%d] Store update failed: %v", post.ID, err)
			continue
		}
		updated++
	}
	log.Printf("[Stats] Refreshed %d of %d published post(s)", updated, len(posts))
}
