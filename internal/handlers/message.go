package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mymmrac/telego"

	"github.com/dn0sh/travel-content-bot/internal/database"
	"github.com/dn0sh/travel-content-bot/internal/database/models"
	"github.com/dn0sh/travel-content-bot/internal/planner"
	"github.com/dn0sh/travel-content-bot/pkg/telegoapi"
)

// HandleMessage routes a non-command message according to the chat's dialog
// state. Messages outside any flow get the unknown-command hint.
func (h *MessageHandler) HandleMessage(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	st := h.state(message.Chat.ID)

	switch st.step {
	case stepAwaitTheme:
		return h.stepTheme(ctx, bot, message, st)
	case stepAwaitDate:
		return h.stepDate(ctx, bot, message, st)
	case stepAwaitTime:
		return h.stepTime(ctx, bot, message, st)
	case stepAwaitPeriod:
		return h.stepPeriod(ctx, bot, message, st)
	case stepAwaitDailyCount:
		return h.stepDailyCount(ctx, bot, message, st)
	case stepAwaitBatchTime:
		return h.stepBatchTime(ctx, bot, message, st)
	case stepAwaitBatchDate:
		return h.stepBatchDate(ctx, bot, message, st)
	case stepAwaitThemeSelection:
		return h.stepThemeSelection(ctx, bot, message, st)
	case stepAwaitConfirm:
		return h.stepConfirm(ctx, bot, message, st)
	default:
		return h.reply(ctx, bot, message.Chat.ID, "MsgUnknownCommand", nil)
	}
}

// stepTheme takes the theme, generates the draft content and asks for the
// publish date. Generation failure keeps the step so the operator can retry
// with another theme.
func (h *MessageHandler) stepTheme(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, st *dialogState) error {
	theme := strings.TrimSpace(message.Text)
	if theme == "" {
		return h.reply(ctx, bot, message.Chat.ID, "MsgAskTheme", nil)
	}

	if err := h.reply(ctx, bot, message.Chat.ID, "MsgGeneratingPost", nil); err != nil {
		return err
	}

	post, err := h.generatePost(ctx, theme)
	if err != nil {
		log.Printf("Post generation failed for theme %q: %v", theme, err)
		return h.reply(ctx, bot, message.Chat.ID, "MsgGenerationFailed", map[string]interface{}{
			"Error": err.Error(),
		})
	}

	postID, err := h.repo.Create(ctx, post)
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, fmt.Errorf("persist generated post: %w", err))
	}

	st.draft = &Draft{
		Theme:       theme,
		Text:        post.Text,
		TextPrompt:  post.TextPrompt,
		TextModel:   post.TextModel,
		ImageRef:    post.ImageRef,
		ImagePrompt: post.ImagePrompt,
		ImageModel:  post.ImageModel,
		PostID:      postID,
	}
	st.step = stepAwaitDate

	if err := h.reply(ctx, bot, message.Chat.ID, "MsgPostPreview", map[string]interface{}{
		"Text": post.Text,
	}); err != nil {
		return err
	}
	return h.reply(ctx, bot, message.Chat.ID, "MsgAskPublishDate", nil)
}

func (h *MessageHandler) stepDate(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, st *dialogState) error {
	date, err := h.parseDateInput(message.Text)
	if err != nil {
		return h.reply(ctx, bot, message.Chat.ID, "MsgDateFormatError", nil)
	}
	st.draft.Date = date
	st.step = stepAwaitTime
	return h.reply(ctx, bot, message.Chat.ID, "MsgAskPublishTime", nil)
}

func (h *MessageHandler) stepTime(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, st *dialogState) error {
	publishTime, err := planner.ParsePublishTime(message.Text)
	if err != nil {
		if errors.Is(err, planner.ErrTimeOutOfRange) {
			return h.reply(ctx, bot, message.Chat.ID, "MsgTimeRangeError", nil)
		}
		return h.reply(ctx, bot, message.Chat.ID, "MsgTimeFormatError", nil)
	}

	year, month, day := st.draft.Date.Date()
	fireAt := time.Date(year, month, day, publishTime.Hour, publishTime.Minute, 0, 0, h.timezone)
	if !fireAt.After(time.Now().In(h.timezone)) {
		st.step = stepAwaitDate
		return h.reply(ctx, bot, message.Chat.ID, "MsgDateInPastError", nil)
	}

	st.draft.Time = publishTime
	if err := h.schedulePost(ctx, st.draft.PostID, fireAt); err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}

	postID := st.draft.PostID
	h.resetState(message.Chat.ID)
	return h.reply(ctx, bot, message.Chat.ID, "MsgPostScheduled", map[string]interface{}{
		"PostID": postID,
		"Date":   fireAt.Format("2006-01-02"),
		"Time":   publishTime.String(),
	})
}

// schedulePost marks the post scheduled in the store, then arms the timer.
// Durable state first: a crash between the two steps is recovered by the
// scheduler restore scan.
func (h *MessageHandler) schedulePost(ctx context.Context, postID int64, fireAt time.Time) error {
	scheduledAt := fireAt.UTC()
	isScheduled := true
	err := h.repo.Update(ctx, postID, database.PostUpdate{
		IsScheduled: &isScheduled,
		ScheduledAt: &scheduledAt,
	})
	if err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			return fmt.Errorf("post %d disappeared before scheduling: %w", postID, err)
		}
		return fmt.Errorf("mark post %d scheduled: %w", postID, err)
	}
	h.sched.Schedule(fireAt, postID)
	return nil
}

// generatePost runs the full generation pipeline for a theme: post text,
// then an image prompt from the text, then the image. Text failure aborts;
// image failure is recorded on the post and publication proceeds text-only.
func (h *MessageHandler) generatePost(ctx context.Context, theme string) (*models.Post, error) {
	text, err := h.textGen.GenerateText(ctx, theme)
	if err != nil {
		return nil, fmt.Errorf("generate text: %w", err)
	}

	now := time.Now().UTC()
	post := &models.Post{
		TextPrompt:      theme,
		Text:            text,
		TextModel:       h.textGen.Model(),
		TextGeneratedAt: &now,
		TextStatus:      models.GenerationSuccess,
	}

	imagePrompt, err := h.textGen.GenerateImagePrompt(ctx, text)
	if err != nil {
		log.Printf("Image prompt generation failed for theme %q: %v", theme, err)
		post.ImageStatus = models.GenerationError
		post.ErrorMessage = err.Error()
		return post, nil
	}
	post.ImagePrompt = imagePrompt

	imageRef, err := h.imageGen.GenerateImage(ctx, imagePrompt)
	imageAt := time.Now().UTC()
	post.ImageGeneratedAt = &imageAt
	post.ImageModel = h.imageGen.Model()
	if err != nil {
		log.Printf("Image generation failed for theme %q: %v", theme, err)
		post.ImageStatus = models.GenerationError
		post.ErrorMessage = err.Error()
		return post, nil
	}
	post.ImageRef = imageRef
	post.ImageStatus = models.GenerationSuccess
	return post, nil
}
