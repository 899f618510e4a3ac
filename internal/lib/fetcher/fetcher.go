// Package fetcher загружает страницу товара Яндекс.Маркета и извлекает
// название и текущую цену.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/S1l3ntium/yandex-price-bot/internal/config"
	"github.com/S1l3ntium/yandex-price-bot/internal/models"

	"github.com/PuerkitoBio/goquery"
)

const (
	nameSelector  = `h1[data-auto="productCardTitle"]`
	priceSelector = `span[data-auto="snippet-price-current"]`
)

var (
	ErrBadStatus     = errors.New("unexpected response status")
	ErrNameNotFound  = errors.New("product name not found on page")
	ErrPriceNotFound = errors.New("product price not found on page")
	ErrBadPrice      = errors.New("cannot parse product price")
)

type Fetcher struct {
	client    *http.Client
	cookie    string
	userAgent string
}

func New(cfg *config.Config) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Fetcher.Timeout},
		cookie:    cfg.Fetcher.Cookie,
		userAgent: cfg.Fetcher.UserAgent,
	}
}

// Fetch возвращает название и цену товара по URL. Любая ошибка (сеть, таймаут,
// не-200, неожиданная разметка) означает пропуск товара, но не падение.
func (f *Fetcher) Fetch(ctx context.Context, url string) (models.ProductInfo, error) {
	const op = "fetcher.Fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.ProductInfo{}, fmt.Errorf("%s: %w", op, err)
	}

	req.Header.Set("Cookie", f.cookie)
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.8,en-US;q=0.5,en;q=0.3")
	req.Header.Set("Referer", "https://market.yandex.ru/")

	resp, err := f.client.Do(req)
	if err != nil {
		return models.ProductInfo{}, fmt.Errorf("%s: http GET: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ProductInfo{}, fmt.Errorf("%s: %w: %d", op, ErrBadStatus, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return models.ProductInfo{}, fmt.Errorf("%s: parse html: %w", op, err)
	}

	name := strings.TrimSpace(doc.Find(nameSelector).First().Text())
	if name == "" {
		return models.ProductInfo{}, fmt.Errorf("%s: %w", op, ErrNameNotFound)
	}

	priceText := doc.Find(priceSelector).First().Text()
	if strings.TrimSpace(priceText) == "" {
		return models.ProductInfo{}, fmt.Errorf("%s: %w", op, ErrPriceNotFound)
	}

	price, err := parsePrice(priceText)
	if err != nil {
		return models.ProductInfo{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.ProductInfo{Name: name, Price: price}, nil
}

// parsePrice очищает цену от пробелов, неразрывных пробелов и знака рубля.
func parsePrice(raw string) (int, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		// Всё, кроме цифр, пробельных символов и валюты, прерывает разбор.
		if unicode.IsSpace(r) || !unicode.IsPrint(r) || r == '₽' {
			continue
		}
		return 0, fmt.Errorf("%w: %q", ErrBadPrice, raw)
	}

	if b.Len() == 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadPrice, raw)
	}

	price, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadPrice, raw)
	}

	return price, nil
}
