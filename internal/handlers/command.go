package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/dn0sh/travel-content-bot/internal/database"
	"github.com/dn0sh/travel-content-bot/internal/locales"
	"github.com/dn0sh/travel-content-bot/internal/themes"
	"github.com/dn0sh/travel-content-bot/pkg/telegoapi"
)

// themeChunkSize bounds one theme-generation request; larger batches are
// split to keep the model output parseable.
const themeChunkSize = 15

// defaultThemeCount is generated by a bare "/themes new".
const defaultThemeCount = 15

// HandleStart handles the /start command: registers the command menu and
// sends the welcome message.
func (h *MessageHandler) HandleStart(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if err := h.setupCommands(ctx, bot); err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, fmt.Errorf("failed to set up commands: %w", err))
	}
	return h.reply(ctx, bot, message.Chat.ID, "MsgStart", nil)
}

// HandleHelp handles the /help command.
func (h *MessageHandler) HandleHelp(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer()
	var b strings.Builder
	b.WriteString(locales.GetMessage(localizer, "MsgHelpHeader", nil, nil))
	for _, cmd := range h.commands {
		desc := locales.GetMessage(localizer, cmd.Description, nil, nil)
		b.WriteString(fmt.Sprintf("\n/%s — %s", cmd.Command, desc))
	}
	return h.send(ctx, bot, message.Chat.ID, b.String())
}

// HandleVersion handles the /version command.
func (h *MessageHandler) HandleVersion(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	return h.reply(ctx, bot, message.Chat.ID, "MsgVersion", map[string]interface{}{
		"Version": h.version,
	})
}

// HandleCancel aborts the chat's active dialog flow, if any.
func (h *MessageHandler) HandleCancel(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if h.resetState(message.Chat.ID) {
		return h.reply(ctx, bot, message.Chat.ID, "MsgCancelled", nil)
	}
	return h.reply(ctx, bot, message.Chat.ID, "MsgNothingToCancel", nil)
}

// HandleNewPost starts the single-post flow.
func (h *MessageHandler) HandleNewPost(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	st := h.state(message.Chat.ID)
	st.step = stepAwaitTheme
	st.draft = &Draft{}
	st.batch = nil
	return h.reply(ctx, bot, message.Chat.ID, "MsgAskTheme", nil)
}

// HandleAutoSchedule starts the batch auto-schedule flow.
func (h *MessageHandler) HandleAutoSchedule(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	st := h.state(message.Chat.ID)
	st.step = stepAwaitPeriod
	st.batch = &BatchDraft{}
	st.draft = nil
	return h.reply(ctx, bot, message.Chat.ID, "MsgAskPeriod", nil)
}

// HandleScheduled lists the posts awaiting publication.
func (h *MessageHandler) HandleScheduled(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	posts, err := h.repo.ListScheduledPending(ctx)
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, fmt.Errorf("list scheduled posts: %w", err))
	}
	if len(posts) == 0 {
		return h.reply(ctx, bot, message.Chat.ID, "MsgScheduledEmpty", nil)
	}
	return h.send(ctx, bot, message.Chat.ID, h.formatScheduledList(posts))
}

// HandleDelete removes a scheduled post and cancels its pending job.
func (h *MessageHandler) HandleDelete(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	args := strings.Fields(message.Text)
	if len(args) != 2 {
		return h.reply(ctx, bot, message.Chat.ID, "MsgDeleteUsage", nil)
	}
	postID, err := strconv.ParseInt(strings.TrimPrefix(args[1], "#"), 10, 64)
	if err != nil {
		return h.reply(ctx, bot, message.Chat.ID, "MsgDeleteUsage", nil)
	}

	// Cancel first so the timer cannot fire mid-delete; a firing that
	// already started resolves via the published guard on durable state.
	h.sched.CancelPost(postID)

	if err := h.repo.Delete(ctx, postID); err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			return h.reply(ctx, bot, message.Chat.ID, "MsgPostNotFound", map[string]interface{}{"PostID": postID})
		}
		return h.sendError(ctx, bot, message.Chat.ID, fmt.Errorf("delete post %d: %w", postID, err))
	}
	return h.reply(ctx, bot, message.Chat.ID, "MsgPostDeleted", map[string]interface{}{"PostID": postID})
}

// HandleStats lists published posts with their engagement numbers.
func (h *MessageHandler) HandleStats(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	posts, err := h.repo.ListPublished(ctx)
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, fmt.Errorf("list published posts: %w", err))
	}
	if len(posts) == 0 {
		return h.reply(ctx, bot, message.Chat.ID, "MsgStatsEmpty", nil)
	}
	return h.send(ctx, bot, message.Chat.ID, h.formatStatsList(posts))
}

// HandleThemes shows the current theme list; "/themes new [count]"
// regenerates it.
func (h *MessageHandler) HandleThemes(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	args := strings.Fields(message.Text)
	if len(args) >= 2 && args[1] == "new" {
		count := defaultThemeCount
		if len(args) >= 3 {
			parsed, err := strconv.Atoi(args[2])
			if err != nil || parsed < 1 || parsed > themes.MaxThemes {
				return h.reply(ctx, bot, message.Chat.ID, "MsgThemesGenerationFailed", map[string]interface{}{
					"Error": fmt.Sprintf("количество должно быть от 1 до %d", themes.MaxThemes),
				})
			}
			count = parsed
		}

		if err := h.reply(ctx, bot, message.Chat.ID, "MsgThemesGenerating", nil); err != nil {
			return err
		}
		generated, err := h.generateThemes(ctx, count)
		if err != nil {
			return h.reply(ctx, bot, message.Chat.ID, "MsgThemesGenerationFailed", map[string]interface{}{
				"Error": err.Error(),
			})
		}
		h.themeCache.Set(generated)
		return h.reply(ctx, bot, message.Chat.ID, "MsgThemesGenerated", map[string]interface{}{
			"Count": h.themeCache.Len(),
		})
	}

	all := h.themeCache.All()
	if len(all) == 0 {
		return h.reply(ctx, bot, message.Chat.ID, "MsgThemesEmpty", nil)
	}
	var b strings.Builder
	b.WriteString(locales.GetMessage(h.getLocalizer(), "MsgThemesHeader", nil, nil))
	for i, theme := range all {
		b.WriteString(fmt.Sprintf("\n%d. %s", i+1, theme))
	}
	return h.send(ctx, bot, message.Chat.ID, b.String())
}

// generateThemes requests count themes from the text backend in chunks.
func (h *MessageHandler) generateThemes(ctx context.Context, count int) ([]string, error) {
	var all []string
	remaining := count
	for remaining > 0 {
		chunk := remaining
		if chunk > themeChunkSize {
			chunk = themeChunkSize
		}
		generated, err := h.textGen.GenerateThemes(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("generate themes: %w", err)
		}
		all = append(all, generated...)
		remaining -= chunk
	}
	return all, nil
}
