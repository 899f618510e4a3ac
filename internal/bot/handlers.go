package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/S1l3ntium/yandex-price-bot/internal/lib/chart"
	sl "github.com/S1l3ntium/yandex-price-bot/internal/lib/logger"
	"github.com/S1l3ntium/yandex-price-bot/internal/models"
	"github.com/S1l3ntium/yandex-price-bot/internal/monitor"
	"github.com/S1l3ntium/yandex-price-bot/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Префиксы callback-данных.
const (
	cbSelectProduct   = "select_product"
	cbSelectChart     = "select_graph"
	cbChart           = "graph"
	cbDelete          = "delete"
	cbChangeThreshold = "change_threshold"
	cbThreshold       = "threshold"
	cbInterval        = "interval"
	cbCheckNow        = "check_now"
	cbBackToList      = "back_to_list"
)

const (
	msgAccessDenied = "❌ Бот закрыт для общего пользования.\nДля получения доступа обратитесь к администратору."

	msgWelcome = "👋 Привет! Я бот для отслеживания цен на Яндекс.Маркете.\n\n" +
		"🔍 Что я умею:\n" +
		"• Отслеживать цены на товары с Яндекс.Маркета\n" +
		"• Уведомлять об изменении цены\n" +
		"• Показывать графики изменения цен\n" +
		"• Управлять списком отслеживаемых товаров\n\n" +
		"📱 Используйте кнопки ниже для навигации:"

	msgHelp = "📚 Справка по использованию бота:\n\n" +
		"🔍 Основные команды:\n" +
		"• /start — начать работу с ботом\n" +
		"• /help — показать эту справку\n\n" +
		"📱 Как использовать бота:\n" +
		"1. Нажмите «➕ Добавить товар»\n" +
		"2. Отправьте ссылку на товар с Яндекс.Маркета\n" +
		"3. Выберите порог изменения цены\n" +
		"4. Бот будет отслеживать изменения цены\n\n" +
		"ℹ️ При достижении порога вы получите уведомление,\n" +
		"все изменения цен сохраняются в истории."

	msgNoProducts = "У вас пока нет отслеживаемых товаров."
	msgSendURL    = "Отправьте ссылку на товар с Яндекс.Маркета:"
	msgBadURL     = "❌ Пожалуйста, отправьте действительный URL товара."
	msgFetchFail  = "❌ Не удалось получить информацию о товаре. Проверьте ссылку."
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)

	case msg.Text == btnMyProducts:
		b.showProducts(ctx, chatID, userID)

	case msg.Text == btnAddProduct:
		b.setPending(chatID, &addState{})
		b.reply(chatID, msgSendURL)

	case msg.Text == btnCharts:
		b.showChartsMenu(ctx, chatID, userID)

	case msg.Text == btnSettings:
		b.showSettings(ctx, chatID, userID)

	default:
		b.handleDialog(ctx, msg)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		prods, err := b.products.List(ctx, msg.From.ID)
		if err != nil {
			b.log.Error("failed to list products", sl.Err(err))
		}
		b.replyWithMarkup(chatID, msgWelcome, mainKeyboard(len(prods) > 0))

	case "help":
		b.reply(chatID, msgHelp)

	default:
		b.reply(chatID, "Неизвестная команда. Используйте /help.")
	}
}

// handleDialog обрабатывает текст вне команд: шаги диалога добавления товара.
func (b *Bot) handleDialog(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	st := b.getPending(chatID)
	if st == nil {
		return
	}

	// Шаг 1: ждём ссылку.
	if st.URL == "" {
		url := strings.TrimSpace(msg.Text)
		if err := b.validate.Var(url, "required,url"); err != nil {
			b.reply(chatID, msgBadURL)
			return
		}

		info, err := b.products.Preview(ctx, url)
		if err != nil {
			b.log.Error("preview failed", sl.Err(err), slog.String("url", url))
			b.reply(chatID, msgFetchFail)
			return
		}

		st.URL = url
		st.Name = info.Name
		st.Price = info.Price
		b.setPending(chatID, st)

		b.replyWithMarkup(chatID,
			fmt.Sprintf("Выберите порог изменения цены:\nТекущая цена: %d₽", info.Price),
			thresholdKeyboard(0),
		)
		return
	}

	// Шаг 2: порог можно ввести числом вместо кнопки.
	threshold, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil {
		b.reply(chatID, "❌ Пожалуйста, введите число.")
		return
	}
	if threshold <= 0 {
		b.reply(chatID, "❌ Порог должен быть положительным числом.")
		return
	}

	b.finishAdd(ctx, chatID, msg.From.ID, st, threshold)
}

func (b *Bot) finishAdd(ctx context.Context, chatID, userID int64, st *addState, threshold int) {
	info := models.ProductInfo{Name: st.Name, Price: st.Price}

	product, err := b.products.Track(ctx, userID, st.URL, info, threshold)
	if err != nil {
		b.log.Error("failed to track product", sl.Err(err))
		if errors.Is(err, storage.ErrProductAlreadyTracked) {
			b.reply(chatID, "❌ Этот товар уже отслеживается.")
		} else {
			b.reply(chatID, "❌ Произошла ошибка при добавлении товара.")
		}
		b.setPending(chatID, nil)
		return
	}

	b.setPending(chatID, nil)
	b.replyWithMarkup(chatID,
		fmt.Sprintf("✅ Товар добавлен!\n📦 %s\n💰 Цена: %d₽\n⚡️ Порог: %d₽",
			product.Name, product.LastPrice, product.Threshold),
		mainKeyboard(true),
	)
}

func (b *Bot) showProducts(ctx context.Context, chatID, userID int64) {
	prods, err := b.products.List(ctx, userID)
	if err != nil {
		b.log.Error("failed to list products", sl.Err(err))
		b.reply(chatID, "❌ Не удалось получить список товаров.")
		return
	}
	if len(prods) == 0 {
		b.reply(chatID, msgNoProducts)
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 Ваши товары:\n\n")
	for _, p := range prods {
		fmt.Fprintf(&sb, "📦 %s\n💰 Цена: %d₽\n⚡️ Порог: %d₽\n\n", p.Name, p.LastPrice, p.Threshold)
	}

	b.replyWithMarkup(chatID, sb.String(), productListKeyboard(prods, cbSelectProduct))
}

func (b *Bot) showChartsMenu(ctx context.Context, chatID, userID int64) {
	prods, err := b.products.List(ctx, userID)
	if err != nil {
		b.log.Error("failed to list products", sl.Err(err))
		b.reply(chatID, "❌ Не удалось получить список товаров.")
		return
	}
	if len(prods) == 0 {
		b.reply(chatID, msgNoProducts+"\nДобавьте товар, чтобы просматривать графики изменения цен.")
		return
	}

	b.replyWithMarkup(chatID, "Выберите товар для просмотра графика:", productListKeyboard(prods, cbSelectChart))
}

func (b *Bot) showSettings(ctx context.Context, chatID, userID int64) {
	prods, err := b.products.List(ctx, userID)
	if err != nil {
		b.log.Error("failed to list products", sl.Err(err))
	}

	interval, err := b.settings.CheckInterval(ctx)
	if err != nil {
		b.log.Error("failed to read check interval", sl.Err(err))
	}

	b.replyWithMarkup(chatID, settingsText(len(prods), interval), settingsKeyboard())
}

func settingsText(productCount, interval int) string {
	return fmt.Sprintf(
		"⚙️ Настройки бота:\n\n"+
			"• Отслеживаемых товаров: %d\n"+
			"• Интервал проверки цен: каждые %d минут\n\n"+
			"Выберите новый интервал проверки цен:",
		productCount, interval,
	)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	data := cq.Data
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID
	userID := cq.From.ID

	switch {
	case data == cbCheckNow:
		b.checkNow(ctx, cq)

	case data == cbBackToList:
		b.backToList(ctx, cq)

	case strings.HasPrefix(data, cbSelectProduct+"_"):
		id := parseID(strings.TrimPrefix(data, cbSelectProduct+"_"))
		b.showProductCard(ctx, chatID, messageID, id)
		b.answerCallback(cq.ID, "", false)

	case strings.HasPrefix(data, cbSelectChart+"_"):
		id := parseID(strings.TrimPrefix(data, cbSelectChart+"_"))
		b.editWithMarkup(chatID, messageID, "Выберите период для графика:", productKeyboard(id))
		b.answerCallback(cq.ID, "", false)

	case strings.HasPrefix(data, cbChart+"_"):
		b.sendChart(ctx, cq, strings.TrimPrefix(data, cbChart+"_"))

	case strings.HasPrefix(data, cbChangeThreshold+"_"):
		id := parseID(strings.TrimPrefix(data, cbChangeThreshold+"_"))
		b.askNewThreshold(ctx, chatID, messageID, id)
		b.answerCallback(cq.ID, "", false)

	case strings.HasPrefix(data, cbDelete+"_"):
		id := parseID(strings.TrimPrefix(data, cbDelete+"_"))
		b.deleteProduct(ctx, cq, id, userID)

	case strings.HasPrefix(data, cbThreshold+"_"):
		b.applyThreshold(ctx, cq, strings.TrimPrefix(data, cbThreshold+"_"))

	case strings.HasPrefix(data, cbInterval+"_"):
		b.applyInterval(ctx, cq, strings.TrimPrefix(data, cbInterval+"_"))

	default:
		b.answerCallback(cq.ID, "", false)
	}
}

func (b *Bot) showProductCard(ctx context.Context, chatID int64, messageID int, productID int64) {
	product, err := b.products.ProductByID(ctx, productID)
	if err != nil {
		b.edit(chatID, messageID, "❌ Товар не найден.")
		return
	}

	text := fmt.Sprintf("📦 %s\n💰 Цена: %d₽\n⚡️ Порог: %d₽",
		product.Name, product.LastPrice, product.Threshold)
	b.editWithMarkup(chatID, messageID, text, productKeyboard(productID))
}

// sendChart строит и отправляет график; rest имеет вид "{id}_{hours}".
func (b *Bot) sendChart(ctx context.Context, cq *tgbotapi.CallbackQuery, rest string) {
	chatID := cq.Message.Chat.ID

	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 {
		b.answerCallback(cq.ID, "", false)
		return
	}
	productID := parseID(parts[0])
	hours, _ := strconv.Atoi(parts[1])

	points, err := b.products.History(ctx, productID, hours)
	if err != nil {
		b.log.Error("failed to load history", sl.Err(err), slog.Int64("product_id", productID))
		b.reply(chatID, "❌ Не удалось сгенерировать график.")
		b.answerCallback(cq.ID, "", false)
		return
	}

	product, err := b.products.ProductByID(ctx, productID)
	if err != nil {
		b.reply(chatID, "❌ Товар не найден.")
		b.answerCallback(cq.ID, "", false)
		return
	}

	png, err := chart.Render(product.Name, points)
	if err != nil {
		if errors.Is(err, chart.ErrNotEnoughPoints) {
			b.reply(chatID, "ℹ️ Пока недостаточно данных для графика.")
		} else {
			b.log.Error("failed to render chart", sl.Err(err))
			b.reply(chatID, "❌ Не удалось сгенерировать график.")
		}
		b.answerCallback(cq.ID, "", false)
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "graph.png", Bytes: png})
	photo.Caption = fmt.Sprintf("График изменения цены за последние %d часов", hours)
	if _, err := b.api.Send(photo); err != nil {
		b.log.Error("failed to send chart", sl.Err(err))
	}

	b.replyWithMarkup(chatID, "Выберите действие:", productKeyboard(productID))
	b.answerCallback(cq.ID, "", false)
}

func (b *Bot) askNewThreshold(ctx context.Context, chatID int64, messageID int, productID int64) {
	product, err := b.products.ProductByID(ctx, productID)
	if err != nil {
		b.edit(chatID, messageID, "❌ Товар не найден.")
		return
	}

	text := fmt.Sprintf("📦 %s\n💰 Текущая цена: %d₽\n⚡️ Текущий порог: %d₽\n\nВыберите новый порог:",
		product.Name, product.LastPrice, product.Threshold)
	b.editWithMarkup(chatID, messageID, text, thresholdKeyboard(productID))
}

func (b *Bot) deleteProduct(ctx context.Context, cq *tgbotapi.CallbackQuery, productID, userID int64) {
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID

	if err := b.products.Delete(ctx, productID, userID); err != nil {
		b.log.Error("failed to delete product", sl.Err(err),
			slog.Int64("product_id", productID), slog.Int64("user_id", userID))
		b.edit(chatID, messageID, "❌ Не удалось удалить товар.")
		b.answerCallback(cq.ID, "", false)
		return
	}

	b.edit(chatID, messageID, "✅ Товар удален.")
	b.answerCallback(cq.ID, "✅ Товар удален", false)
}

// applyThreshold обрабатывает выбор порога; rest имеет вид "{порог}" при добавлении
// товара или "{порог}_{id}" при изменении существующего.
func (b *Bot) applyThreshold(ctx context.Context, cq *tgbotapi.CallbackQuery, rest string) {
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID
	userID := cq.From.ID

	parts := strings.SplitN(rest, "_", 2)
	threshold, err := strconv.Atoi(parts[0])
	if err != nil || threshold <= 0 {
		b.answerCallback(cq.ID, "❌ Неверный формат данных", true)
		return
	}

	if len(parts) == 1 {
		st := b.getPending(chatID)
		if st == nil || st.URL == "" {
			b.answerCallback(cq.ID, "❌ Сначала отправьте ссылку на товар", true)
			return
		}
		b.finishAdd(ctx, chatID, userID, st, threshold)
		b.answerCallback(cq.ID, "", false)
		return
	}

	productID := parseID(parts[1])
	if err := b.products.SetThreshold(ctx, productID, userID, threshold); err != nil {
		b.log.Error("failed to set threshold", sl.Err(err), slog.Int64("product_id", productID))
		b.edit(chatID, messageID, "❌ Не удалось обновить порог.")
		b.answerCallback(cq.ID, "", false)
		return
	}

	product, err := b.products.ProductByID(ctx, productID)
	if err != nil {
		b.edit(chatID, messageID, "❌ Товар не найден.")
		b.answerCallback(cq.ID, "", false)
		return
	}

	text := fmt.Sprintf("✅ Порог успешно обновлен!\n📦 %s\n💰 Цена: %d₽\n⚡️ Новый порог: %d₽",
		product.Name, product.LastPrice, threshold)
	b.editWithMarkup(chatID, messageID, text, productKeyboard(productID))
	b.answerCallback(cq.ID, "✅ Порог обновлен", false)
}

func (b *Bot) applyInterval(ctx context.Context, cq *tgbotapi.CallbackQuery, rest string) {
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID

	minutes, err := strconv.Atoi(rest)
	if err != nil || !allowedInterval(minutes) {
		b.answerCallback(cq.ID, "❌ Недопустимый интервал", true)
		return
	}

	if err := b.settings.SetCheckInterval(ctx, minutes); err != nil {
		b.log.Error("failed to persist check interval", sl.Err(err))
		b.answerCallback(cq.ID, "❌ Ошибка при обновлении интервала", true)
		return
	}

	if err := b.scheduler.Reconfigure(ctx, minutes); err != nil {
		b.log.Error("failed to reconfigure scheduler", sl.Err(err))
		b.answerCallback(cq.ID, "❌ Ошибка при обновлении интервала", true)
		return
	}

	prods, err := b.products.List(ctx, cq.From.ID)
	if err != nil {
		b.log.Error("failed to list products", sl.Err(err))
	}

	text := fmt.Sprintf("✅ Интервал проверки цен успешно изменен на %d минут.\n\n%s",
		minutes, settingsText(len(prods), minutes))
	b.editWithMarkup(chatID, messageID, text, settingsKeyboard())
	b.answerCallback(cq.ID, "✅ Интервал обновлен", false)
}

// checkNow запускает внеочередной цикл проверки тем же RunCheckCycle,
// что и планировщик: параллельного цикла не возникает.
func (b *Bot) checkNow(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID

	b.edit(chatID, cq.Message.MessageID, "🔄 Запускаю проверку цен...")

	start := time.Now()
	if err := b.checker.RunCheckCycle(ctx); err != nil {
		if errors.Is(err, monitor.ErrCycleRunning) {
			b.answerCallback(cq.ID, "⏳ Проверка уже выполняется", true)
			return
		}
		b.log.Error("manual check cycle failed", sl.Err(err))
		b.answerCallback(cq.ID, "❌ Произошла ошибка", true)
		return
	}

	b.log.Info("manual check cycle finished", slog.Duration("took", time.Since(start)))

	interval, err := b.settings.CheckInterval(ctx)
	if err != nil {
		b.log.Error("failed to read check interval", sl.Err(err))
	}
	prods, err := b.products.List(ctx, cq.From.ID)
	if err != nil {
		b.log.Error("failed to list products", sl.Err(err))
	}

	b.replyWithMarkup(chatID,
		"✅ Проверка цен завершена!\n\n"+settingsText(len(prods), interval),
		settingsKeyboard(),
	)
	b.answerCallback(cq.ID, "✅ Проверка завершена", false)
}

func (b *Bot) backToList(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID

	prods, err := b.products.List(ctx, cq.From.ID)
	if err != nil || len(prods) == 0 {
		b.edit(chatID, messageID, msgNoProducts)
		b.answerCallback(cq.ID, "", false)
		return
	}

	b.editWithMarkup(chatID, messageID, "Выберите товар для управления:", productListKeyboard(prods, cbSelectProduct))
	b.answerCallback(cq.ID, "", false)
}

func parseID(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}
