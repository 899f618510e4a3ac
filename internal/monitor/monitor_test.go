package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/S1l3ntium/yandex-price-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priceUpdate struct {
	ProductID int64
	Price     int
}

type stubStorage struct {
	mu       sync.Mutex
	products []models.Product
	updates  []priceUpdate
	listErr  error
}

func (s *stubStorage) AllProducts(_ context.Context) ([]models.Product, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func (s *stubStorage) UpdatePrice(_ context.Context, productID int64, newPrice int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updates = append(s.updates, priceUpdate{ProductID: productID, Price: newPrice})
	for i := range s.products {
		if s.products[i].ID == productID {
			s.products[i].LastPrice = newPrice
		}
	}
	return nil
}

type stubFetcher struct {
	mu     sync.Mutex
	prices map[string]int
	errs   map[string]error
	block  chan struct{} // если не nil, Fetch ждёт закрытия канала
	calls  []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (models.ProductInfo, error) {
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, url)
	if err := f.errs[url]; err != nil {
		return models.ProductInfo{}, err
	}
	return models.ProductInfo{Name: "product", Price: f.prices[url]}, nil
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *stubNotifier) Notify(_ context.Context, _ int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, text)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func product(id int64, url string, lastPrice, threshold int) models.Product {
	return models.Product{
		ID:        id,
		UserID:    42,
		URL:       url,
		Name:      "Кофеварка",
		LastPrice: lastPrice,
		Threshold: threshold,
	}
}

func TestRunCheckCycle_NotifiesWhenDeltaReachesThreshold(t *testing.T) {
	storage := &stubStorage{products: []models.Product{product(1, "https://shop/a", 1000, 500)}}
	fetcher := &stubFetcher{prices: map[string]int{"https://shop/a": 1500}}
	notifier := &stubNotifier{}

	m := New(discardLogger(), storage, fetcher, notifier)

	require.NoError(t, m.RunCheckCycle(context.Background()))

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "Цена выросла")
	assert.Contains(t, notifier.sent[0], "Кофеварка")

	require.Len(t, storage.updates, 1)
	assert.Equal(t, priceUpdate{ProductID: 1, Price: 1500}, storage.updates[0])
}

func TestRunCheckCycle_PersistsSilentlyBelowThreshold(t *testing.T) {
	storage := &stubStorage{products: []models.Product{product(1, "https://shop/a", 1000, 500)}}
	fetcher := &stubFetcher{prices: map[string]int{"https://shop/a": 1499}}
	notifier := &stubNotifier{}

	m := New(discardLogger(), storage, fetcher, notifier)

	require.NoError(t, m.RunCheckCycle(context.Background()))

	assert.Empty(t, notifier.sent)
	require.Len(t, storage.updates, 1)
	assert.Equal(t, priceUpdate{ProductID: 1, Price: 1499}, storage.updates[0])
}

func TestRunCheckCycle_SkipsUnchangedPrice(t *testing.T) {
	storage := &stubStorage{products: []models.Product{product(1, "https://shop/a", 1000, 500)}}
	fetcher := &stubFetcher{prices: map[string]int{"https://shop/a": 1000}}
	notifier := &stubNotifier{}

	m := New(discardLogger(), storage, fetcher, notifier)

	require.NoError(t, m.RunCheckCycle(context.Background()))

	assert.Empty(t, notifier.sent)
	assert.Empty(t, storage.updates)
}

func TestRunCheckCycle_NotifiesOnPriceDrop(t *testing.T) {
	storage := &stubStorage{products: []models.Product{product(1, "https://shop/a", 2000, 500)}}
	fetcher := &stubFetcher{prices: map[string]int{"https://shop/a": 1400}}
	notifier := &stubNotifier{}

	m := New(discardLogger(), storage, fetcher, notifier)

	require.NoError(t, m.RunCheckCycle(context.Background()))

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "Цена упала")
	assert.Contains(t, notifier.sent[0], "-600₽")
}

func TestRunCheckCycle_FetchFailureDoesNotStopCycle(t *testing.T) {
	storage := &stubStorage{products: []models.Product{
		product(1, "https://shop/a", 1000, 500),
		product(2, "https://shop/b", 1000, 500),
		product(3, "https://shop/c", 1000, 500),
	}}
	fetcher := &stubFetcher{
		prices: map[string]int{
			"https://shop/a": 1600,
			"https://shop/c": 1700,
		},
		errs: map[string]error{
			"https://shop/b": errors.New("connection refused"),
		},
	}
	notifier := &stubNotifier{}

	m := New(discardLogger(), storage, fetcher, notifier)

	require.NoError(t, m.RunCheckCycle(context.Background()))

	assert.Len(t, fetcher.calls, 3)
	assert.Len(t, notifier.sent, 2)

	require.Len(t, storage.updates, 2)
	assert.Equal(t, priceUpdate{ProductID: 1, Price: 1600}, storage.updates[0])
	assert.Equal(t, priceUpdate{ProductID: 3, Price: 1700}, storage.updates[1])
}

func TestRunCheckCycle_NotifyFailureStillPersistsPrice(t *testing.T) {
	storage := &stubStorage{products: []models.Product{product(1, "https://shop/a", 1000, 500)}}
	fetcher := &stubFetcher{prices: map[string]int{"https://shop/a": 1600}}
	notifier := &stubNotifier{err: errors.New("chat not found")}

	m := New(discardLogger(), storage, fetcher, notifier)

	require.NoError(t, m.RunCheckCycle(context.Background()))

	require.Len(t, storage.updates, 1)
	assert.Equal(t, priceUpdate{ProductID: 1, Price: 1600}, storage.updates[0])
}

func TestRunCheckCycle_SecondRunWithSamePriceIsNoop(t *testing.T) {
	storage := &stubStorage{products: []models.Product{product(1, "https://shop/a", 1000, 500)}}
	fetcher := &stubFetcher{prices: map[string]int{"https://shop/a": 1600}}
	notifier := &stubNotifier{}

	m := New(discardLogger(), storage, fetcher, notifier)

	require.NoError(t, m.RunCheckCycle(context.Background()))
	require.NoError(t, m.RunCheckCycle(context.Background()))

	assert.Len(t, notifier.sent, 1)
	assert.Len(t, storage.updates, 1)
}

func TestRunCheckCycle_ReturnsErrCycleRunningWhileBusy(t *testing.T) {
	block := make(chan struct{})
	storage := &stubStorage{products: []models.Product{product(1, "https://shop/a", 1000, 500)}}
	fetcher := &stubFetcher{
		prices: map[string]int{"https://shop/a": 1000},
		block:  block,
	}

	m := New(discardLogger(), storage, fetcher, &stubNotifier{})

	done := make(chan error, 1)
	go func() { done <- m.RunCheckCycle(context.Background()) }()

	// Дожидаемся входа первого цикла в Fetch.
	assert.Eventually(t, func() bool {
		return m.running.Load()
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, m.RunCheckCycle(context.Background()), ErrCycleRunning)

	close(block)
	require.NoError(t, <-done)

	// После завершения цикла монитор снова доступен.
	require.NoError(t, m.RunCheckCycle(context.Background()))
}

func TestRunCheckCycle_StorageListError(t *testing.T) {
	listErr := errors.New("connection reset")
	m := New(discardLogger(), &stubStorage{listErr: listErr}, &stubFetcher{}, &stubNotifier{})

	err := m.RunCheckCycle(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, listErr)
}

func TestRunCheckCycle_CanceledContext(t *testing.T) {
	storage := &stubStorage{products: []models.Product{
		product(1, "https://shop/a", 1000, 500),
		product(2, "https://shop/b", 1000, 500),
	}}
	fetcher := &stubFetcher{prices: map[string]int{"https://shop/a": 1600, "https://shop/b": 1600}}

	m := New(discardLogger(), storage, fetcher, &stubNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.RunCheckCycle(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fetcher.calls)
}

func TestFormatNotification(t *testing.T) {
	up := formatNotification("Кофеварка", 1000, 1600, 600)
	assert.True(t, strings.HasPrefix(up, "📈 Цена выросла!"))
	assert.Contains(t, up, "Была: 1000₽, стала: 1600₽")
	assert.Contains(t, up, "Разница: +600₽")

	down := formatNotification("Кофеварка", 1600, 1000, -600)
	assert.True(t, strings.HasPrefix(down, "📉 Цена упала!"))
	assert.Contains(t, down, "Разница: -600₽")
}
