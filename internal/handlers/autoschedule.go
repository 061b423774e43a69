package handlers

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"

	"github.com/dn0sh/travel-content-bot/internal/locales"
	"github.com/dn0sh/travel-content-bot/internal/planner"
	"github.com/dn0sh/travel-content-bot/internal/themes"
	"github.com/dn0sh/travel-content-bot/pkg/telegoapi"
)

const (
	maxDailyPosts = 10

	// themeOvershoot over-generates themes for a batch so duplicates and
	// unusable entries from the model still leave enough to pick from.
	themeOvershoot = 1.47
)

// allowedPeriods are the planning horizons offered to the operator.
var allowedPeriods = map[int]bool{2: true, 7: true, 10: true, 30: true}

func (h *MessageHandler) stepPeriod(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, st *dialogState) error {
	period, err := strconv.Atoi(strings.TrimSpace(message.Text))
	if err != nil || !allowedPeriods[period] {
		return h.reply(ctx, bot, message.Chat.ID, "MsgPeriodError", nil)
	}
	st.batch.PeriodDays = period
	st.step = stepAwaitDailyCount
	return h.reply(ctx, bot, message.Chat.ID, "MsgAskDailyCount", map[string]interface{}{
		"Max": maxDailyPosts,
	})
}

func (h *MessageHandler) stepDailyCount(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, st *dialogState) error {
	count, err := strconv.Atoi(strings.TrimSpace(message.Text))
	if err != nil || count < 1 || count > maxDailyPosts {
		return h.reply(ctx, bot, message.Chat.ID, "MsgDailyCountError", map[string]interface{}{
			"Max": maxDailyPosts,
		})
	}
	st.batch.DailyPosts = count
	st.step = stepAwaitBatchTime
	return h.reply(ctx, bot, message.Chat.ID, "MsgAskPublishTime", nil)
}

func (h *MessageHandler) stepBatchTime(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, st *dialogState) error {
	publishTime, err := planner.ParsePublishTime(message.Text)
	if err != nil {
		if err == planner.ErrTimeOutOfRange {
			return h.reply(ctx, bot, message.Chat.ID, "MsgTimeRangeError", nil)
		}
		return h.reply(ctx, bot, message.Chat.ID, "MsgTimeFormatError", nil)
	}
	st.batch.PublishTime = publishTime
	st.step = stepAwaitBatchDate
	return h.reply(ctx, bot, message.Chat.ID, "MsgAskStartDate", nil)
}

// stepBatchDate takes the start date and makes sure the theme cache can
// serve the batch, generating a fresh list when it is empty.
func (h *MessageHandler) stepBatchDate(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, st *dialogState) error {
	date, err := h.parseDateInput(message.Text)
	if err != nil {
		return h.reply(ctx, bot, message.Chat.ID, "MsgDateFormatError", nil)
	}
	today := time.Now().In(h.timezone)
	if date.Year() < today.Year() ||
		(date.Year() == today.Year() && date.YearDay() < today.YearDay()) {
		return h.reply(ctx, bot, message.Chat.ID, "MsgDateInPastError", nil)
	}
	st.batch.StartDate = date

	if h.themeCache.Len() == 0 {
		if err := h.reply(ctx, bot, message.Chat.ID, "MsgThemesGenerating", nil); err != nil {
			return err
		}
		total := st.batch.PeriodDays * st.batch.DailyPosts
		want := int(math.Ceil(float64(total) * themeOvershoot))
		if want > themes.MaxThemes {
			want = themes.MaxThemes
		}
		generated, err := h.generateThemes(ctx, want)
		if err != nil {
			return h.reply(ctx, bot, message.Chat.ID, "MsgThemesGenerationFailed", map[string]interface{}{
				"Error": err.Error(),
			})
		}
		h.themeCache.Set(generated)
	}

	st.step = stepAwaitThemeSelection
	return h.reply(ctx, bot, message.Chat.ID, "MsgAskThemesSelect", map[string]interface{}{
		"Themes": numberedThemes(h.themeCache.All()),
	})
}

// stepThemeSelection parses a comma/space separated list of theme numbers,
// or "все" to take the whole cached list.
func (h *MessageHandler) stepThemeSelection(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, st *dialogState) error {
	available := h.themeCache.All()
	selected, err := parseThemeSelection(message.Text, available)
	if err != nil {
		return h.reply(ctx, bot, message.Chat.ID, "MsgThemeSelectionError", map[string]interface{}{
			"Error": err.Error(),
		})
	}
	st.batch.SelectedThemes = selected

	total := st.batch.PeriodDays * st.batch.DailyPosts
	if len(selected) < total {
		// Themes rotate over the slots, so a short selection still works;
		// the operator is told the list will repeat.
		if err := h.reply(ctx, bot, message.Chat.ID, "MsgNotEnoughThemes", map[string]interface{}{
			"Have": len(selected),
			"Need": total,
		}); err != nil {
			return err
		}
	}

	slots, err := planner.Plan(planner.Params{
		PeriodDays:  st.batch.PeriodDays,
		DailyPosts:  st.batch.DailyPosts,
		StartDate:   st.batch.StartDate,
		PublishTime: st.batch.PublishTime,
		Themes:      selected,
	})
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, fmt.Errorf("plan batch: %w", err))
	}

	localizer := h.getLocalizer()
	var b strings.Builder
	b.WriteString(locales.GetMessage(localizer, "MsgPlanPreviewHeader", map[string]interface{}{
		"Total": len(slots),
	}, nil))
	for i, slot := range slots {
		b.WriteString(fmt.Sprintf("\n%d. %s — %s",
			i+1, slot.At.Format("2006-01-02 15:04"), slot.Theme))
	}
	b.WriteString("\n\n")
	b.WriteString(locales.GetMessage(localizer, "MsgPlanConfirm", nil, nil))

	st.step = stepAwaitConfirm
	return h.send(ctx, bot, message.Chat.ID, b.String())
}

func (h *MessageHandler) stepConfirm(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, st *dialogState) error {
	switch strings.ToLower(strings.TrimSpace(message.Text)) {
	case "да", "yes", "y", "+":
		batch := st.batch
		h.resetState(message.Chat.ID)
		return h.runBatch(ctx, bot, message.Chat.ID, batch)
	case "нет", "no", "n", "-":
		h.resetState(message.Chat.ID)
		return h.reply(ctx, bot, message.Chat.ID, "MsgCancelled", nil)
	default:
		return h.reply(ctx, bot, message.Chat.ID, "MsgPlanConfirm", nil)
	}
}

// runBatch generates, persists and schedules a post per planned slot. One
// failing slot is reported and skipped; the rest of the batch continues.
func (h *MessageHandler) runBatch(ctx context.Context, bot telegoapi.BotAPI, chatID int64, batch *BatchDraft) error {
	slots, err := planner.Plan(planner.Params{
		PeriodDays:  batch.PeriodDays,
		DailyPosts:  batch.DailyPosts,
		StartDate:   batch.StartDate,
		PublishTime: batch.PublishTime,
		Themes:      batch.SelectedThemes,
	})
	if err != nil {
		return h.sendError(ctx, bot, chatID, fmt.Errorf("plan batch: %w", err))
	}

	if err := h.reply(ctx, bot, chatID, "MsgBatchStarted", nil); err != nil {
		return err
	}

	scheduled := 0
	for i, slot := range slots {
		if err := h.scheduleSlot(ctx, slot); err != nil {
			log.Printf("Batch slot %d (%s) failed: %v", i+1, slot.Theme, err)
			if replyErr := h.reply(ctx, bot, chatID, "MsgBatchItemFailed", map[string]interface{}{
				"Slot":  i + 1,
				"Error": err.Error(),
			}); replyErr != nil {
				return replyErr
			}
			continue
		}
		scheduled++
	}

	return h.reply(ctx, bot, chatID, "MsgBatchDone", map[string]interface{}{
		"Scheduled": scheduled,
		"Total":     len(slots),
	})
}

func (h *MessageHandler) scheduleSlot(ctx context.Context, slot planner.Slot) error {
	post, err := h.generatePost(ctx, slot.Theme)
	if err != nil {
		return err
	}
	postID, err := h.repo.Create(ctx, post)
	if err != nil {
		return fmt.Errorf("persist post: %w", err)
	}
	return h.schedulePost(ctx, postID, slot.At)
}

// numberedThemes renders the cache as a "1. theme" list for selection.
func numberedThemes(all []string) string {
	var b strings.Builder
	for i, theme := range all {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%d. %s", i+1, theme))
	}
	return b.String()
}

// parseThemeSelection resolves operator input into a theme list. Accepts
// "все"/"all" for the entire list, otherwise 1-based numbers separated by
// commas or whitespace. Duplicates collapse, order of first mention wins.
func parseThemeSelection(input string, available []string) ([]string, error) {
	input = strings.TrimSpace(input)
	if len(available) == 0 {
		return nil, fmt.Errorf("no themes available")
	}
	if strings.EqualFold(input, "все") || strings.EqualFold(input, "all") {
		return append([]string(nil), available...), nil
	}

	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty selection")
	}

	seen := make(map[int]struct{}, len(fields))
	selected := make([]string, 0, len(fields))
	for _, field := range fields {
		num, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("not a theme number: %q", field)
		}
		if num < 1 || num > len(available) {
			return nil, fmt.Errorf("theme number %d out of range", num)
		}
		if _, ok := seen[num]; ok {
			continue
		}
		seen[num] = struct{}{}
		selected = append(selected, available[num-1])
	}
	return selected, nil
}
