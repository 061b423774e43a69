// Package publisher wraps the channel-send operation behind a small,
// stateless interface consumed by the publication handler.
package publisher

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/ratelimit"

	"github.com/dn0sh/travel-content-bot/pkg/telegoapi"
)

// sendsPerSecond caps outgoing channel messages well below Telegram's limits.
const sendsPerSecond = 1

// TelegramPublisher sends posts to a Telegram channel via the Bot API.
type TelegramPublisher struct {
	bot         telegoapi.BotAPI
	ratelimiter ratelimit.Limiter
}

// NewTelegramPublisher creates a rate-limited channel publisher.
func NewTelegramPublisher(bot telegoapi.BotAPI) (*TelegramPublisher, error) {
	if bot == nil {
		return nil, fmt.Errorf("telego bot (BotAPI) instance cannot be nil")
	}
	return &TelegramPublisher{
		bot:         bot,
		ratelimiter: ratelimit.New(sendsPerSecond),
	}, nil
}

// Publish sends the post content to the channel and returns the resulting
// channel message id. At least one of text and imageRef must be set. With an
// imageRef present the post goes out as a photo with the text as caption.
func (p *TelegramPublisher) Publish(ctx context.Context, channelID int64, text, imageRef string) (int, error) {
	if text == "" && imageRef == "" {
		return 0, fmt.Errorf("post has neither text nor image")
	}

	p.ratelimiter.Take()

	if imageRef != "" {
		file, err := inputFile(imageRef)
		if err != nil {
			return 0, err
		}
		params := tu.Photo(tu.ID(channelID), file).WithCaption(text)
		msg, err := p.bot.SendPhoto(ctx, params)
		if err != nil {
			return 0, fmt.Errorf("send photo to channel %d: %w", channelID, err)
		}
		return msg.MessageID, nil
	}

	msg, err := p.bot.SendMessage(ctx, tu.Message(tu.ID(channelID), text))
	if err != nil {
		return 0, fmt.Errorf("send message to channel %d: %w", channelID, err)
	}
	return msg.MessageID, nil
}

// inputFile turns an image reference into a telego input file. URLs are
// passed through; anything else is treated as a local path produced by the
// image generator.
func inputFile(imageRef string) (telego.InputFile, error) {
	if strings.HasPrefix(imageRef, "http://") || strings.HasPrefix(imageRef, "https://") {
		return tu.FileFromURL(imageRef), nil
	}
	f, err := os.Open(imageRef)
	if err != nil {
		return telego.InputFile{}, fmt.Errorf("open image %q: %w", imageRef, err)
	}
	// telego reads and closes the file during the send.
	return tu.File(f), nil
}

// PostLink builds a deep link to a published channel message.
func PostLink(channelID int64, messageID int) string {
	return fmt.Sprintf("https://t.me/c/%s/%d", cleanChannelID(strconv.FormatInt(channelID, 10)), messageID)
}

// cleanChannelID strips the Bot API channel-id prefix ("-100" for
// supergroups/channels, a plain "-" otherwise) to get the id usable in
// t.me/c/ links.
func cleanChannelID(id string) string {
	switch {
	case strings.HasPrefix(id, "-100"):
		return id[4:]
	case strings.HasPrefix(id, "-"):
		return id[1:]
	default:
		return id
	}
}
