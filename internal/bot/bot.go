// Package bot реализует Telegram-интерфейс трекера цен: команды, меню и доставку
// уведомлений об изменении цен.
package bot

import (
	"context"
	"log/slog"
	"sync"

	sl "github.com/S1l3ntium/yandex-price-bot/internal/lib/logger"
	"github.com/S1l3ntium/yandex-price-bot/internal/products"

	validator "github.com/go-playground/validator/v10"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type SettingsStorage interface {
	CheckInterval(ctx context.Context) (int, error)
	SetCheckInterval(ctx context.Context, minutes int) error
}

type Scheduler interface {
	Reconfigure(ctx context.Context, minutes int) error
}

type Checker interface {
	RunCheckCycle(ctx context.Context) error
}

// addState хранит состояние диалога добавления товара для одного чата.
type addState struct {
	URL   string
	Name  string
	Price int
}

type Bot struct {
	api       *tgbotapi.BotAPI
	log       *slog.Logger
	adminIDs  []int64
	products  *products.ProductOperator
	settings  SettingsStorage
	scheduler Scheduler
	checker   Checker
	validate  *validator.Validate

	mu      sync.Mutex
	pending map[int64]*addState // chatID -> диалог добавления товара
}

func New(
	api *tgbotapi.BotAPI,
	log *slog.Logger,
	adminIDs []int64,
	prodOp *products.ProductOperator,
	settings SettingsStorage,
	scheduler Scheduler,
	checker Checker,
) *Bot {
	return &Bot{
		api:       api,
		log:       log,
		adminIDs:  adminIDs,
		products:  prodOp,
		settings:  settings,
		scheduler: scheduler,
		checker:   checker,
		validate:  validator.New(),
		pending:   make(map[int64]*addState),
	}
}

// Run обрабатывает обновления до отмены контекста.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.log.Info("bot started", slog.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		if !b.isAdmin(update.Message.From.ID) {
			b.reply(update.Message.Chat.ID, msgAccessDenied)
			return
		}
		b.handleMessage(ctx, update.Message)

	case update.CallbackQuery != nil:
		if !b.isAdmin(update.CallbackQuery.From.ID) {
			b.answerCallback(update.CallbackQuery.ID, msgAccessDenied, true)
			return
		}
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

// isAdmin проверяет статический список доверенных пользователей; всё остальное
// отвергается до какой-либо работы с хранилищем.
func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.adminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Error("failed to send message", sl.Err(err), slog.Int64("chat_id", chatID))
	}
}

func (b *Bot) replyWithMarkup(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("failed to send message", sl.Err(err), slog.Int64("chat_id", chatID))
	}
}

func (b *Bot) editWithMarkup(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("failed to edit message", sl.Err(err), slog.Int64("chat_id", chatID))
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("failed to edit message", sl.Err(err), slog.Int64("chat_id", chatID))
	}
}

func (b *Bot) answerCallback(callbackID, text string, alert bool) {
	cb := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cb = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := b.api.Request(cb); err != nil {
		b.log.Error("failed to answer callback", sl.Err(err))
	}
}

func (b *Bot) setPending(chatID int64, st *addState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st == nil {
		delete(b.pending, chatID)
		return
	}
	b.pending[chatID] = st
}

func (b *Bot) getPending(chatID int64) *addState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending[chatID]
}
