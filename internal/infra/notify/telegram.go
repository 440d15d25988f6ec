package notify

import (
	"context"
	"fmt"
	"strconv"

	"gopkg.in/telebot.v3"

	"learnhub/internal/domain/notify"
)

// ErrBadChatID is returned for recipient addresses that are not a numeric
// Telegram chat id.
var ErrBadChatID = fmt.Errorf("recipient must be a numeric Telegram chat id")

// TelegramNotifier delivers lessons to a Telegram chat. The recipient
// address is the chat id in decimal form.
type TelegramNotifier struct {
	bot *telebot.Bot
}

var _ notify.Notifier = (*TelegramNotifier)(nil)

func NewTelegramNotifier(bot *telebot.Bot) *TelegramNotifier {
	return &TelegramNotifier{bot: bot}
}

func (n *TelegramNotifier) Send(_ context.Context, address, text string) error {
	chatID, err := strconv.ParseInt(address, 10, 64)
	if err != nil {
		return ErrBadChatID
	}
	_, err = n.bot.Send(&telebot.User{ID: chatID}, text, &telebot.SendOptions{})
	return err
}

func (n *TelegramNotifier) ValidateAddress(address string) error {
	if _, err := strconv.ParseInt(address, 10, 64); err != nil {
		return ErrBadChatID
	}
	return nil
}
