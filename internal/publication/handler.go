// Package publication orchestrates one firing of a scheduled post: load,
// idempotency guard, channel send, state transition, operator notification.
package publication

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/dn0sh/travel-content-bot/internal/database"
	"github.com/dn0sh/travel-content-bot/internal/database/models"
	"github.com/dn0sh/travel-content-bot/internal/locales"
	"github.com/dn0sh/travel-content-bot/internal/publisher"
)

// PostStore is the slice of the post repository the handler needs.
type PostStore interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	MarkPublished(ctx context.Context, id int64, publishedAt time.Time, messageID int) error
}

// Publisher sends a post to the channel and returns the message id.
type Publisher interface {
	Publish(ctx context.Context, channelID int64, text, imageRef string) (int, error)
}

// Notifier delivers best-effort status messages to the admins.
type Notifier interface {
	NotifyAdmins(ctx context.Context, message string)
}

// Handler executes exactly one firing attempt per invocation. Publish
// failures are terminal for the firing: they are typically permanent (bad
// channel id, revoked permission), and an automatic retry could duplicate a
// partially delivered post. The operator re-schedules manually instead.
type Handler struct {
	store     PostStore
	publisher Publisher
	notifier  Notifier
	channelID int64
}

// NewHandler creates a publication handler.
func NewHandler(store PostStore, pub Publisher, notif Notifier, channelID int64) (*Handler, error) {
	if store == nil {
		return nil, fmt.Errorf("post store cannot be nil")
	}
	if pub == nil {
		return nil, fmt.Errorf("publisher cannot be nil")
	}
	if notif == nil {
		return nil, fmt.Errorf("notifier cannot be nil")
	}
	if channelID == 0 {
		return nil, fmt.Errorf("channel id cannot be zero")
	}
	return &Handler{store: store, publisher: pub, notifier: notif, channelID: channelID}, nil
}

// Fire runs one publication attempt for the post.
//
// The published flag on durable state is the idempotency guard: a duplicate
// firing, or a firing racing a cancellation, resolves here and not in
// scheduler bookkeeping. Notification failures never undo the publish
// commit; they are contained inside the notifier.
func (h *Handler) Fire(ctx context.Context, postID int64) error {
	logPrefix := fmt.Sprintf("[Publication Post:%d]", postID)

	post, err := h.store.GetByID(ctx, postID)
	if errors.Is(err, database.ErrPostNotFound) {
		// The post was deleted before its fire time; the job is dropped.
		log.Printf("%s Post no longer exists, dropping job", logPrefix)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load post %d: %w", postID, err)
	}

	if post.Published {
		log.Printf("%s Already published (message %d), nothing to do", logPrefix, post.ChannelMessageID)
		return nil
	}

	messageID, err := h.publisher.Publish(ctx, h.channelID, post.Text, post.ImageRef)
	if err != nil {
		// Terminal for this firing: the post stays scheduled-and-unpublished
		// so the operator can retry or re-schedule it.
		log.Printf("%s Publish failed: %v", logPrefix, err)
		localizer := locales.NewLocalizer(locales.DefaultLanguage)
		h.notifier.NotifyAdmins(ctx, locales.GetMessage(localizer, "MsgPublishError", map[string]interface{}{
			"PostID": postID,
			"Error":  err.Error(),
		}, nil))
		return fmt.Errorf("publish post %d: %w", postID, err)
	}

	if err := h.store.MarkPublished(ctx, postID, time.Now().UTC(), messageID); err != nil {
		if errors.Is(err, database.ErrAlreadyPublished) {
			// Lost a race against a concurrent firing; the send that won
			// already recorded its message id.
			log.Printf("%s Concurrent firing already recorded publication", logPrefix)
			return nil
		}
		// The send succeeded but the commit did not. The post remains
		// pending and will re-fire after restart; a duplicate publish is
		// possible here and accepted as the known trade-off.
		log.Printf("%s ERROR: publish succeeded (message %d) but store update failed: %v", logPrefix, messageID, err)
		sentry.CaptureException(fmt.Errorf("record publication of post %d: %w", postID, err))
		return fmt.Errorf("record publication of post %d: %w", postID, err)
	}

	log.Printf("%s Published as channel message %d", logPrefix, messageID)

	localizer := locales.NewLocalizer(locales.DefaultLanguage)
	h.notifier.NotifyAdmins(ctx, locales.GetMessage(localizer, "MsgPublishSuccess", map[string]interface{}{
		"Link": publisher.PostLink(h.channelID, messageID),
	}, nil))
	return nil
}
