// Package bot runs the Telegram update loop: it reads long-poll updates,
// gates them on the admin list and dispatches commands and dialog messages
// to the handlers layer.
package bot

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/ratelimit"

	"github.com/dn0sh/travel-content-bot/internal/handlers"
	"github.com/dn0sh/travel-content-bot/internal/locales"
	"github.com/dn0sh/travel-content-bot/pkg/telegoapi"
)

// processTimeout bounds one update. Generation-heavy dialog steps (batch
// confirmation runs text and image generation per slot) need minutes, not
// seconds.
const processTimeout = 10 * time.Minute

// Bot wraps the telego update channel and routes updates to the message
// handler. It recovers handler panics so one bad update cannot take the
// loop down.
type Bot struct {
	bot         telegoapi.BotAPI
	updatesChan <-chan telego.Update
	debug       bool
	handler     *handlers.MessageHandler
	ratelimiter ratelimit.Limiter
}

// BotDeps holds the dependencies required by the Bot.
type BotDeps struct {
	Bot         telegoapi.BotAPI
	UpdatesChan <-chan telego.Update
	Debug       bool
	Handler     *handlers.MessageHandler
}

// New creates a new Bot instance from its dependencies.
func New(deps BotDeps) (*Bot, error) {
	if deps.Bot == nil {
		return nil, fmt.Errorf("telego bot (BotAPI) instance cannot be nil")
	}
	if deps.UpdatesChan == nil {
		return nil, fmt.Errorf("updates channel cannot be nil")
	}
	if deps.Handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}
	return &Bot{
		bot:         deps.Bot,
		updatesChan: deps.UpdatesChan,
		debug:       deps.Debug,
		handler:     deps.Handler,
		ratelimiter: ratelimit.New(20),
	}, nil
}

// handleCommandUpdate processes a message identified as a command.
func (b *Bot) handleCommandUpdate(ctx context.Context, message telego.Message) {
	command := strings.TrimPrefix(strings.Fields(message.Text)[0], "/")
	if at := strings.Index(command, "@"); at != -1 {
		command = command[:at]
	}
	logPrefix := fmt.Sprintf("[Cmd:%s User:%d]", command, message.From.ID)

	handlerFunc := b.handler.GetCommandHandler(command)
	if handlerFunc == nil {
		log.Printf("%s No handler found", logPrefix)
		b.sendLocalized(ctx, message.Chat.ID, "MsgUnknownCommand")
		return
	}

	if b.debug {
		log.Printf("%s Executing handler", logPrefix)
	}
	if err := handlerFunc(ctx, b.bot, message); err != nil {
		log.Printf("%s Handler error: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s handler error: %w", logPrefix, err))
	}
}

// handleTextUpdate feeds a plain text message to the active dialog flow.
func (b *Bot) handleTextUpdate(ctx context.Context, message telego.Message) {
	logPrefix := fmt.Sprintf("[Text User:%d Msg:%d]", message.From.ID, message.MessageID)
	if err := b.handler.HandleMessage(ctx, b.bot, message); err != nil {
		log.Printf("%s Handler error: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s handler error: %w", logPrefix, err))
	}
}

func (b *Bot) sendLocalized(ctx context.Context, chatID int64, msgID string) {
	localizer := locales.NewLocalizer(locales.DefaultLanguage)
	text := locales.GetMessage(localizer, msgID, nil, nil)
	if _, err := b.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.Printf("Failed to send %s to chat %d: %v", msgID, chatID, err)
	}
}

// processUpdate routes one incoming update.
func (b *Bot) processUpdate(ctx context.Context, update telego.Update) {
	b.ratelimiter.Take()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC recovered in processUpdate: %v\n%s", r, debug.Stack())
			sentry.CurrentHub().Recover(r)
			sentry.Flush(time.Second * 2)
		}
	}()

	processingCtx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	if update.Message == nil {
		if b.debug {
			log.Printf("Ignoring unhandled update type: %+v", update)
		}
		return
	}

	message := *update.Message
	if message.From == nil {
		log.Printf("Ignoring message %d from chat %d without sender", message.MessageID, message.Chat.ID)
		return
	}

	if !b.handler.IsAdmin(message.From.ID) {
		log.Printf("Rejecting message from non-admin user %d", message.From.ID)
		b.sendLocalized(processingCtx, message.Chat.ID, "MsgRequiresAdmin")
		return
	}

	switch {
	case strings.HasPrefix(message.Text, "/"):
		b.handleCommandUpdate(processingCtx, message)
	case message.Text != "":
		b.handleTextUpdate(processingCtx, message)
	default:
		if b.debug {
			log.Printf("Ignoring unhandled message type (ID: %d)", message.MessageID)
		}
	}
}

// Start begins the bot's update processing loop. It returns when the
// context is cancelled or the updates channel closes, after in-flight
// updates finish.
func (b *Bot) Start(ctx context.Context) {
	log.Println("Listening for updates...")

	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			log.Println("Context done, stopping update processing...")
			wg.Wait()
			log.Println("All update processing finished.")
			return
		case update, ok := <-b.updatesChan:
			if !ok {
				log.Println("Updates channel closed.")
				wg.Wait()
				return
			}
			wg.Add(1)
			go func(up telego.Update) {
				defer wg.Done()
				b.processUpdate(ctx, up)
			}(update)
		}
	}
}
