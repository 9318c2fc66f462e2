package notify

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Telegram delivers run summaries to a single chat via the Bot API.
type Telegram struct {
	bot    *tele.Bot
	chatID int64
}

// NewTelegram validates the token against the Bot API and returns a sender
// bound to chatID.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Deliver(ctx context.Context, message string) error {
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(&tele.Chat{ID: t.chatID}, message)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(15 * time.Second):
		return fmt.Errorf("telegram send: timed out")
	}
}
