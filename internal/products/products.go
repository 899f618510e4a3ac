// Package products связывает интерфейсы (бот, HTTP API) с хранилищем.
package products

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/S1l3ntium/yandex-price-bot/internal/models"
	"github.com/S1l3ntium/yandex-price-bot/internal/storage"
)

type CacheStorage interface {
	SaveProduct(ctx context.Context, product models.Product) error
	Product(ctx context.Context, productID int64) (models.Product, error)
	DeleteProduct(ctx context.Context, productID int64) error
}

type PostgresStorage interface {
	SaveProduct(ctx context.Context, userID int64, productURL, name string, price, threshold int) (int64, error)
	Product(ctx context.Context, productID int64) (models.Product, error)
	UserProducts(ctx context.Context, userID int64) ([]models.Product, error)
	SetThreshold(ctx context.Context, productID, userID int64, threshold int) error
	DeleteProduct(ctx context.Context, productID, userID int64) error
	PriceHistory(ctx context.Context, productID int64, since time.Duration) ([]models.PricePoint, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (models.ProductInfo, error)
}

type ProductOperator struct {
	DefaultThreshold int
	Cache            CacheStorage
	Postgres         PostgresStorage
	Fetcher          Fetcher
}

func New(pg PostgresStorage, cache CacheStorage, f Fetcher, defaultThreshold int) *ProductOperator {
	return &ProductOperator{
		DefaultThreshold: defaultThreshold,
		Cache:            cache,
		Postgres:         pg,
		Fetcher:          f,
	}
}

// Preview делает первичную загрузку страницы товара. Ошибка возвращается
// вызывающему: пользователь должен поправить ссылку и повторить.
func (p *ProductOperator) Preview(ctx context.Context, url string) (models.ProductInfo, error) {
	info, err := p.Fetcher.Fetch(ctx, url)
	if err != nil {
		return models.ProductInfo{}, fmt.Errorf("initial fetch failed: %w", err)
	}

	return info, nil
}

// Track сохраняет уже загруженный товар. Нулевой порог заменяется порогом
// по умолчанию.
func (p *ProductOperator) Track(ctx context.Context, userID int64, url string, info models.ProductInfo, threshold int) (models.Product, error) {
	if threshold <= 0 {
		threshold = p.DefaultThreshold
	}

	productID, err := p.Postgres.SaveProduct(ctx, userID, url, info.Name, info.Price, threshold)
	if err != nil {
		return models.Product{}, err
	}

	return models.Product{
		ID:        productID,
		UserID:    userID,
		URL:       url,
		Name:      info.Name,
		LastPrice: info.Price,
		Threshold: threshold,
	}, nil
}

// AddProduct выполняет загрузку и сохранение одним вызовом, для HTTP API.
func (p *ProductOperator) AddProduct(ctx context.Context, userID int64, url string, threshold int) (models.Product, error) {
	info, err := p.Preview(ctx, url)
	if err != nil {
		return models.Product{}, err
	}

	return p.Track(ctx, userID, url, info, threshold)
}

// ProductByID читает товар сквозь кэш: сначала Redis, потом Postgres.
func (p *ProductOperator) ProductByID(ctx context.Context, productID int64) (models.Product, error) {
	product, err := p.Cache.Product(ctx, productID)
	switch {
	case err == nil:
		return product, nil

	case !errors.Is(err, storage.ErrProductNotFound):
		return models.Product{}, err
	}

	product, err = p.Postgres.Product(ctx, productID)
	if err != nil {
		return models.Product{}, err
	}

	_ = p.Cache.SaveProduct(ctx, product)

	return product, nil
}

func (p *ProductOperator) List(ctx context.Context, userID int64) ([]models.Product, error) {
	return p.Postgres.UserProducts(ctx, userID)
}

// SetThreshold меняет порог и инвалидирует кэш. На чужой товар возвращает ErrProductNotFound.
func (p *ProductOperator) SetThreshold(ctx context.Context, productID, userID int64, threshold int) error {
	if err := p.Postgres.SetThreshold(ctx, productID, userID, threshold); err != nil {
		return err
	}

	_ = p.Cache.DeleteProduct(ctx, productID)

	return nil
}

// Delete удаляет товар владельца и инвалидирует кэш.
func (p *ProductOperator) Delete(ctx context.Context, productID, userID int64) error {
	if err := p.Postgres.DeleteProduct(ctx, productID, userID); err != nil {
		return err
	}

	_ = p.Cache.DeleteProduct(ctx, productID)

	return nil
}

func (p *ProductOperator) History(ctx context.Context, productID int64, hours int) ([]models.PricePoint, error) {
	return p.Postgres.PriceHistory(ctx, productID, time.Duration(hours)*time.Hour)
}
