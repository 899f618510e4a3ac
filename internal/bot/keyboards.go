package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/S1l3ntium/yandex-price-bot/internal/models"
)

const (
	btnMyProducts = "📋 Мои товары"
	btnAddProduct = "➕ Добавить товар"
	btnCharts     = "📊 Графики цен"
	btnSettings   = "⚙️ Настройки"
)

var thresholdPresets = []int{500, 1000, 3000, 5000}
var intervalPresets = []int{5, 10, 15, 30}

func allowedInterval(minutes int) bool {
	for _, preset := range intervalPresets {
		if preset == minutes {
			return true
		}
	}
	return false
}

func mainKeyboard(hasProducts bool) tgbotapi.ReplyKeyboardMarkup {
	if !hasProducts {
		kb := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(btnAddProduct),
				tgbotapi.NewKeyboardButton(btnSettings),
			),
		)
		kb.ResizeKeyboard = true
		return kb
	}

	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnMyProducts),
			tgbotapi.NewKeyboardButton(btnAddProduct),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCharts),
			tgbotapi.NewKeyboardButton(btnSettings),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// productListKeyboard строит список товаров, одна кнопка на товар.
func productListKeyboard(prods []models.Product, prefix string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(prods))
	for _, p := range prods {
		label := fmt.Sprintf("📦 %s | %d₽ | ⚡️ %d₽", p.Name, p.LastPrice, p.Threshold)
		if prefix == cbSelectChart {
			label = fmt.Sprintf("📊 %s", p.Name)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s_%d", prefix, p.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func productKeyboard(productID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 График (24ч)", fmt.Sprintf("%s_%d_24", cbChart, productID)),
			tgbotapi.NewInlineKeyboardButtonData("📊 График (7д)", fmt.Sprintf("%s_%d_168", cbChart, productID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Изменить порог", fmt.Sprintf("%s_%d", cbChangeThreshold, productID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Удалить", fmt.Sprintf("%s_%d", cbDelete, productID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Назад к списку", cbBackToList),
		),
	)
}

// thresholdKeyboard предлагает пресеты порога; productID == 0 означает диалог добавления.
func thresholdKeyboard(productID int64) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(thresholdPresets); i += 2 {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 2)
		for _, preset := range thresholdPresets[i : i+2] {
			data := fmt.Sprintf("%s_%d", cbThreshold, preset)
			if productID != 0 {
				data = fmt.Sprintf("%s_%d_%d", cbThreshold, preset, productID)
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("⚡️ %d₽", preset), data,
			))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func settingsKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(intervalPresets); i += 2 {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 2)
		for _, preset := range intervalPresets[i : i+2] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("⏱ %d минут", preset),
				fmt.Sprintf("%s_%d", cbInterval, preset),
			))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Проверить сейчас", cbCheckNow),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
