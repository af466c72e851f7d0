package notify

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iliyamo/league-registration/internal/queue"
)

type chatSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink posts a short notice to the operators' chat.
type TelegramSink struct {
	bot    chatSender
	chatID int64
}

// NewTelegramSink authenticates the bot token.
func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramSink{bot: bot, chatID: chatID}, nil
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Send(_ context.Context, ev queue.RegistrationConfirmed) error {
	_, err := s.bot.Send(tgbotapi.NewMessage(s.chatID, telegramText(ev)))
	return err
}

func telegramText(ev queue.RegistrationConfirmed) string {
	var b strings.Builder
	b.WriteString("New registration: team ")
	b.WriteString(ev.TeamNumber)
	if ev.Summary != "" {
		b.WriteString("\n")
		b.WriteString(ev.Summary)
	}
	return b.String()
}
