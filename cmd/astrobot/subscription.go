package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/store"
)

var (
	ErrNotSubscribed = errors.New("user is not subscribed")
	ErrDailyLimit    = errors.New("daily report limit reached")
)

// isSubscribed grants access to admins, to users granted with /grant and to
// members of the configured channel. Without a channel only grants count.
func (app *application) isSubscribed(ctx context.Context, userID int64, rec store.UserRecord) (bool, error) {
	if rec.Subscribed || app.config.IsAdmin(userID) {
		return true, nil
	}
	channel := app.config.Telegram.SubscriptionChannel
	if channel == "" {
		return false, nil
	}
	member, err := app.telegramBot.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: channel,
		UserID: userID,
	})
	if err != nil {
		return false, fmt.Errorf("get chat member %s: %w", channel, err)
	}
	return isMember(member), nil
}

// isMember reports whether m is a current member of the channel.
func isMember(m *models.ChatMember) bool {
	if m == nil {
		return false
	}
	switch m.Type {
	case models.ChatMemberTypeOwner, models.ChatMemberTypeAdministrator, models.ChatMemberTypeMember:
		return true
	case models.ChatMemberTypeRestricted:
		return m.Restricted != nil && m.Restricted.IsMember
	}
	return false
}

func (app *application) notSubscribedMessage() string {
	if ch := app.config.Telegram.SubscriptionChannel; ch != "" {
		return fmt.Sprintf(msgNotSubscribed, ch)
	}
	return msgNoAccess
}
