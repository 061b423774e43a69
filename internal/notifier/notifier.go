// Package notifier delivers operator-facing status messages to the
// configured admin list. Delivery is best-effort: individual failures are
// logged and never escalated.
package notifier

import (
	"context"
	"fmt"
	"log"

	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/dn0sh/travel-content-bot/pkg/telegoapi"
)

// AdminNotifier fans a message out to every configured admin chat.
type AdminNotifier struct {
	bot      telegoapi.BotAPI
	adminIDs []int64
}

// NewAdminNotifier creates a notifier for the given admin list.
func NewAdminNotifier(bot telegoapi.BotAPI, adminIDs []int64) (*AdminNotifier, error) {
	if bot == nil {
		return nil, fmt.Errorf("telego bot (BotAPI) instance cannot be nil")
	}
	if len(adminIDs) == 0 {
		return nil, fmt.Errorf("admin id list cannot be empty")
	}
	return &AdminNotifier{bot: bot, adminIDs: adminIDs}, nil
}

// NotifyAdmins sends the message to every admin. One admin's delivery
// failure must not block notifying the others, so errors are only logged.
func (n *AdminNotifier) NotifyAdmins(ctx context.Context, message string) {
	for _, adminID := range n.adminIDs {
		params := tu.Message(tu.ID(adminID), message)
		params.ParseMode = "HTML"
		if _, err := n.bot.SendMessage(ctx, params); err != nil {
			log.Printf("[Notifier Admin:%d] Failed to deliver notification: %v", adminID, err)
		}
	}
}
