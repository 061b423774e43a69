package database

import (
	"context"
	"errors"
	"time"

	"github.com/dn0sh/travel-content-bot/internal/database/models"
)

var (
	// ErrPostNotFound is returned when the requested post does not exist.
	ErrPostNotFound = errors.New("post not found")
	// ErrAlreadyPublished is returned when a publish transition is attempted
	// on a post that is already published.
	ErrAlreadyPublished = errors.New("post already published")
)

// PostUpdate describes a partial update of a post record. Nil fields are
// left untouched. The published transition is deliberately absent here:
// it only happens through MarkPublished.
type PostUpdate struct {
	TextPrompt   *string
	Text         *string
	TextModel    *string
	TextStatus   *models.GenerationStatus
	ImageRef     *string
	ImagePrompt  *string
	ImageModel   *string
	ImageStatus  *models.GenerationStatus
	ErrorMessage *string
	IsScheduled  *bool
	ScheduledAt  *time.Time
}

// PostRepository defines the post store consumed by the scheduling core and
// the dialog layer. All mutations are atomic at single-post granularity.
type PostRepository interface {
	// Create persists a new post and returns its assigned id.
	Create(ctx context.Context, post *models.Post) (int64, error)
	// GetByID loads one post; returns ErrPostNotFound if absent.
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	// Update applies a partial update; returns ErrPostNotFound if absent.
	Update(ctx context.Context, id int64, update PostUpdate) error
	// MarkPublished atomically flips published=true and records publishedAt
	// and the channel message id. Returns ErrAlreadyPublished if the post
	// was already published, ErrPostNotFound if it does not exist.
	MarkPublished(ctx context.Context, id int64, publishedAt time.Time, messageID int) error
	// Delete removes a post; returns ErrPostNotFound if absent.
	Delete(ctx context.Context, id int64) error
	// ListScheduledPending returns all posts with is_scheduled=true and
	// published=false, used for startup recovery.
	ListScheduledPending(ctx context.Context) ([]models.Post, error)
	// ListPublished returns published posts ordered by published_at desc.
	ListPublished(ctx context.Context) ([]models.Post, error)
	// UpdateStats writes engagement numbers for a published post.
	UpdateStats(ctx context.Context, id int64, views int64, comments int, reactions map[string]int) error
}
