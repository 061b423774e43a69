package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	"github.com/dn0sh/travel-content-bot/internal/auth"
	"github.com/dn0sh/travel-content-bot/internal/database"
	"github.com/dn0sh/travel-content-bot/internal/generation"
	"github.com/dn0sh/travel-content-bot/internal/scheduler"
	"github.com/dn0sh/travel-content-bot/internal/themes"
	"github.com/dn0sh/travel-content-bot/pkg/telegoapi"
)

// PostScheduler is the slice of the job scheduler the dialog layer needs.
type PostScheduler interface {
	Schedule(fireAt time.Time, postID int64) scheduler.Handle
	CancelPost(postID int64) bool
}

// Command represents a bot command, mapping the command string to its
// localized description key and handler function.
type Command struct {
	Command     string
	Description string // message id of the localized description
	Handler     func(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error
}

// MessageHandler handles incoming Telegram messages. It owns the per-chat
// dialog state machines for the single-post and auto-schedule flows and
// wires them to the post store, the generators and the job scheduler.
type MessageHandler struct {
	channelID int64
	version   string
	timezone  *time.Location

	repo       database.PostRepository
	sched      PostScheduler
	textGen    generation.TextGenerator
	imageGen   generation.ImageGenerator
	themeCache *themes.Cache
	checker    *auth.AdminChecker

	mu      sync.Mutex
	dialogs map[int64]*dialogState

	commands []Command
}

// MessageHandlerDeps holds the dependencies required by the MessageHandler.
type MessageHandlerDeps struct {
	ChannelID  int64
	Version    string
	Timezone   *time.Location
	Repo       database.PostRepository
	Scheduler  PostScheduler
	TextGen    generation.TextGenerator
	ImageGen   generation.ImageGenerator
	ThemeCache *themes.Cache
	Checker    *auth.AdminChecker
}

// NewMessageHandler creates and initializes a new MessageHandler instance.
func NewMessageHandler(deps MessageHandlerDeps) (*MessageHandler, error) {
	if deps.ChannelID == 0 {
		return nil, fmt.Errorf("channel id cannot be zero")
	}
	if deps.Timezone == nil {
		return nil, fmt.Errorf("timezone cannot be nil")
	}
	if deps.Repo == nil {
		return nil, fmt.Errorf("post repository cannot be nil")
	}
	if deps.Scheduler == nil {
		return nil, fmt.Errorf("scheduler cannot be nil")
	}
	if deps.TextGen == nil {
		return nil, fmt.Errorf("text generator cannot be nil")
	}
	if deps.ImageGen == nil {
		return nil, fmt.Errorf("image generator cannot be nil")
	}
	if deps.ThemeCache == nil {
		return nil, fmt.Errorf("theme cache cannot be nil")
	}
	if deps.Checker == nil {
		return nil, fmt.Errorf("admin checker cannot be nil")
	}

	h := &MessageHandler{
		channelID:  deps.ChannelID,
		version:    deps.Version,
		timezone:   deps.Timezone,
		repo:       deps.Repo,
		sched:      deps.Scheduler,
		textGen:    deps.TextGen,
		imageGen:   deps.ImageGen,
		themeCache: deps.ThemeCache,
		checker:    deps.Checker,
		dialogs:    make(map[int64]*dialogState),
	}
	h.commands = []Command{
		{Command: "start", Description: "CmdStartDesc", Handler: h.HandleStart},
		{Command: "help", Description: "CmdHelpDesc", Handler: h.HandleHelp},
		{Command: "newpost", Description: "CmdNewPostDesc", Handler: h.HandleNewPost},
		{Command: "autoschedule", Description: "CmdAutoScheduleDesc", Handler: h.HandleAutoSchedule},
		{Command: "scheduled", Description: "CmdScheduledDesc", Handler: h.HandleScheduled},
		{Command: "delete", Description: "CmdDeleteDesc", Handler: h.HandleDelete},
		{Command: "stats", Description: "CmdStatsDesc", Handler: h.HandleStats},
		{Command: "themes", Description: "CmdThemesDesc", Handler: h.HandleThemes},
		{Command: "cancel", Description: "CmdCancelDesc", Handler: h.HandleCancel},
		{Command: "version", Description: "CmdVersionDesc", Handler: h.HandleVersion},
	}
	return h, nil
}

// GetCommandHandler retrieves the handler function for a command string.
// It returns nil if the command is not found.
func (h *MessageHandler) GetCommandHandler(command string) func(context.Context, telegoapi.BotAPI, telego.Message) error {
	for _, cmd := range h.commands {
		if cmd.Command == command {
			return cmd.Handler
		}
	}
	return nil
}

// Commands returns the registered command list.
func (h *MessageHandler) Commands() []Command {
	return h.commands
}

// IsAdmin reports whether the user may operate the bot.
func (h *MessageHandler) IsAdmin(userID int64) bool {
	return h.checker.IsAdmin(userID)
}
