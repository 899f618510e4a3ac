// Package monitor реализует цикл проверки цен: обход всех отслеживаемых
// товаров, сравнение с последней ценой и уведомления при превышении порога.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	sl "github.com/S1l3ntium/yandex-price-bot/internal/lib/logger"
	"github.com/S1l3ntium/yandex-price-bot/internal/models"
)

// ErrCycleRunning возвращается, если цикл проверки уже выполняется.
var ErrCycleRunning = errors.New("check cycle is already running")

type Storage interface {
	AllProducts(ctx context.Context) ([]models.Product, error)
	UpdatePrice(ctx context.Context, productID int64, newPrice int) error
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (models.ProductInfo, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

type Monitor struct {
	log      *slog.Logger
	storage  Storage
	fetcher  Fetcher
	notifier Notifier

	running atomic.Bool
}

func New(log *slog.Logger, s Storage, f Fetcher, n Notifier) *Monitor {
	return &Monitor{
		log:      log,
		storage:  s,
		fetcher:  f,
		notifier: n,
	}
}

// RunCheckCycle выполняет один полный проход по всем товарам. Повторный вызов
// во время выполнения цикла возвращает ErrCycleRunning, не запуская второй цикл.
func (m *Monitor) RunCheckCycle(ctx context.Context) error {
	const op = "monitor.RunCheckCycle"

	if !m.running.CompareAndSwap(false, true) {
		return ErrCycleRunning
	}
	defer m.running.Store(false)

	products, err := m.storage.AllProducts(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.log.Info("check cycle started", slog.Int("products", len(products)))

	for _, product := range products {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}

		m.checkProduct(ctx, product)
	}

	m.log.Info("check cycle finished")

	return nil
}

// checkProduct проверяет один товар. Любая ошибка здесь означает пропуск
// товара до следующего цикла, но не прерывает остальные.
func (m *Monitor) checkProduct(ctx context.Context, product models.Product) {
	log := m.log.With(
		slog.Int64("product_id", product.ID),
		slog.Int64("user_id", product.UserID),
	)

	info, err := m.fetcher.Fetch(ctx, product.URL)
	if err != nil {
		log.Error("fetch failed, skipping product", sl.Err(err))
		return
	}

	delta := info.Price - product.LastPrice
	absDelta := delta
	if absDelta < 0 {
		absDelta = -absDelta
	}

	log.Debug("product checked",
		slog.Int("last_price", product.LastPrice),
		slog.Int("current_price", info.Price),
		slog.Int("delta", delta),
		slog.Int("threshold", product.Threshold),
	)

	switch {
	case absDelta >= product.Threshold:
		// Сначала уведомление, затем запись цены: неудачная доставка
		// не должна блокировать сохранение актуальной цены.
		text := formatNotification(product.Name, product.LastPrice, info.Price, delta)
		if err := m.notifier.Notify(ctx, product.UserID, text); err != nil {
			log.Error("notification delivery failed", sl.Err(err))
		} else {
			log.Info("notification sent", slog.Int("delta", delta))
		}

		if err := m.storage.UpdatePrice(ctx, product.ID, info.Price); err != nil {
			log.Error("failed to update price", sl.Err(err))
		}

	case delta != 0:
		// Цена изменилась, но порог не достигнут: пишем без уведомления.
		if err := m.storage.UpdatePrice(ctx, product.ID, info.Price); err != nil {
			log.Error("failed to update price", sl.Err(err))
		}

	default:
		// Цена не изменилась: лишнюю запись истории не создаём.
	}
}

func formatNotification(name string, oldPrice, newPrice, delta int) string {
	if delta > 0 {
		return fmt.Sprintf(
			"📈 Цена выросла!\n📦 %s\nБыла: %d₽, стала: %d₽\nРазница: +%d₽",
			name, oldPrice, newPrice, delta,
		)
	}

	return fmt.Sprintf(
		"📉 Цена упала!\n📦 %s\nБыла: %d₽, стала: %d₽\nРазница: %d₽",
		name, oldPrice, newPrice, delta,
	)
}
