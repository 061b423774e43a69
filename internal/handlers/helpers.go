package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"

	"github.com/dn0sh/travel-content-bot/internal/database/models"
	"github.com/dn0sh/travel-content-bot/internal/locales"
	"github.com/dn0sh/travel-content-bot/internal/planner"
	"github.com/dn0sh/travel-content-bot/pkg/telegoapi"
)

// send delivers an HTML-formatted message to the chat, logging failures.
func (h *MessageHandler) send(ctx context.Context, bot telegoapi.BotAPI, chatID int64, text string) error {
	params := tu.Message(tu.ID(chatID), text)
	params.ParseMode = "HTML"
	if _, err := bot.SendMessage(ctx, params); err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
		return err
	}
	return nil
}

// reply localizes a message id and sends it.
func (h *MessageHandler) reply(ctx context.Context, bot telegoapi.BotAPI, chatID int64, msgID string, data map[string]interface{}) error {
	localizer := h.getLocalizer()
	return h.send(ctx, bot, chatID, locales.GetMessage(localizer, msgID, data, nil))
}

// sendError logs the original error and sends a generic localized error
// message; the original error is returned for the update loop to report.
func (h *MessageHandler) sendError(ctx context.Context, bot telegoapi.BotAPI, chatID int64, originalErr error) error {
	log.Printf("Error for operator in chat %d: %v", chatID, originalErr)
	if err := h.reply(ctx, bot, chatID, "MsgErrorGeneral", nil); err != nil {
		log.Printf("Error sending generic error message to chat %d: %v", chatID, err)
	}
	return originalErr
}

// getLocalizer returns the localizer for operator messages. The operator
// chat speaks the default language.
func (h *MessageHandler) getLocalizer() *i18n.Localizer {
	return locales.NewLocalizer(locales.DefaultLanguage)
}

// setupCommands registers the bot command menu with localized descriptions.
func (h *MessageHandler) setupCommands(ctx context.Context, bot telegoapi.BotAPI) error {
	localizer := h.getLocalizer()
	commands := make([]telego.BotCommand, 0, len(h.commands))
	for _, cmd := range h.commands {
		commands = append(commands, telego.BotCommand{
			Command:     cmd.Command,
			Description: locales.GetMessage(localizer, cmd.Description, nil, nil),
		})
	}
	if err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: commands}); err != nil {
		return fmt.Errorf("set bot commands: %w", err)
	}
	return nil
}

// formatScheduledList renders the pending posts for the /scheduled command.
func (h *MessageHandler) formatScheduledList(posts []models.Post) string {
	var b strings.Builder
	localizer := h.getLocalizer()
	b.WriteString(locales.GetMessage(localizer, "MsgScheduledHeader", map[string]interface{}{
		"Count": len(posts),
	}, nil))
	for _, post := range posts {
		b.WriteString("\n")
		when := "—"
		if post.ScheduledAt != nil {
			when = post.ScheduledAt.In(h.timezone).Format("2006-01-02 15:04")
		}
		b.WriteString(fmt.Sprintf("#%d · %s · %s", post.ID, when, snippet(post.Text, 60)))
	}
	return b.String()
}

// formatStatsList renders published posts with engagement numbers.
func (h *MessageHandler) formatStatsList(posts []models.Post) string {
	var b strings.Builder
	localizer := h.getLocalizer()
	b.WriteString(locales.GetMessage(localizer, "MsgStatsHeader", nil, nil))
	for _, post := range posts {
		b.WriteString("\n")
		when := "—"
		if post.PublishedAt != nil {
			when = post.PublishedAt.In(h.timezone).Format("2006-01-02 15:04")
		}
		b.WriteString(fmt.Sprintf("#%d · %s · 👁 %d · 💬 %d · %s",
			post.ID, when, post.Views, post.Comments, snippet(post.Text, 40)))
	}
	return b.String()
}

// parseDateInput accepts YYYY-MM-DD or "-" for tomorrow.
func (h *MessageHandler) parseDateInput(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "-" || input == "" {
		return planner.DefaultStartDate(h.timezone), nil
	}
	date, err := time.ParseInLocation("2006-01-02", input, h.timezone)
	if err != nil {
		return time.Time{}, err
	}
	return date, nil
}

// snippet shortens text to limit runes for list rendering.
func snippet(text string, limit int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
