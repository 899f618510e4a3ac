package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier доставляет уведомления об изменении цен в личные сообщения.
// Реализует monitor.Notifier.
type Notifier struct {
	api *tgbotapi.BotAPI
}

func NewNotifier(api *tgbotapi.BotAPI) *Notifier {
	return &Notifier{api: api}
}

func (n *Notifier) Notify(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := n.api.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		return fmt.Errorf("bot.Notify: %w", err)
	}

	return nil
}
