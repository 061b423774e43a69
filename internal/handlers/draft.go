package handlers

import (
	"time"

	"github.com/dn0sh/travel-content-bot/internal/planner"
)

// dialogStep identifies where a chat is inside a dialog flow.
type dialogStep int

const (
	stepIdle dialogStep = iota

	// single-post flow
	stepAwaitTheme
	stepAwaitDate
	stepAwaitTime

	// auto-schedule flow
	stepAwaitPeriod
	stepAwaitDailyCount
	stepAwaitBatchTime
	stepAwaitBatchDate
	stepAwaitThemeSelection
	stepAwaitConfirm
)

// Draft accumulates the single-post flow step by step. Each field is
// validated at the transition that fills it; the draft only reaches the
// post store once text generation succeeded and a slot is chosen.
type Draft struct {
	Theme       string
	Text        string
	TextPrompt  string
	TextModel   string
	ImageRef    string
	ImagePrompt string
	ImageModel  string
	PostID      int64 // set once the generated draft is persisted
	Date        time.Time
	Time        planner.TimeOfDay
}

// BatchDraft accumulates the auto-schedule flow parameters.
type BatchDraft struct {
	PeriodDays     int
	DailyPosts     int
	PublishTime    planner.TimeOfDay
	StartDate      time.Time
	SelectedThemes []string
}

// dialogState is the per-chat dialog position plus the draft being built.
type dialogState struct {
	step  dialogStep
	draft *Draft
	batch *BatchDraft
}

func (h *MessageHandler) state(chatID int64) *dialogState {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.dialogs[chatID]
	if !ok {
		st = &dialogState{step: stepIdle}
		h.dialogs[chatID] = st
	}
	return st
}

// resetState drops the chat's dialog state. Reports whether there was an
// active flow to cancel.
func (h *MessageHandler) resetState(chatID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.dialogs[chatID]
	active := ok && st.step != stepIdle
	delete(h.dialogs, chatID)
	return active
}
