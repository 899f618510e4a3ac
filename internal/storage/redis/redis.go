package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/S1l3ntium/yandex-price-bot/internal/models"
	"github.com/S1l3ntium/yandex-price-bot/internal/storage"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client     *redis.Client
	DefaultTTL time.Duration
}

func New(ctx context.Context, address string, db int, defaultTTL time.Duration) (*RedisRepo, error) {
	const op = "storage.redis.New"

	rdb := redis.NewClient(&redis.Options{
		Addr: address,
		DB:   db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client:     rdb,
		DefaultTTL: defaultTTL,
	}, nil
}

func (r *RedisRepo) SaveProduct(ctx context.Context, product models.Product) error {
	const op = "storage.redis.SaveProduct"

	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.client.Set(ctx, productKey(product.ID), data, r.DefaultTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) Product(ctx context.Context, productID int64) (models.Product, error) {
	const op = "storage.redis.Product"

	var product models.Product

	data, err := r.client.Get(ctx, productKey(productID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return product, storage.ErrProductNotFound
		}
		return product, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal(data, &product); err != nil {
		return product, fmt.Errorf("%s: %w", op, err)
	}

	return product, nil
}

// * DeleteProduct инвалидирует кэш после изменения или удаления товара.
func (r *RedisRepo) DeleteProduct(ctx context.Context, productID int64) error {
	const op = "storage.redis.DeleteProduct"

	if err := r.client.Del(ctx, productKey(productID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Close закрывает соединение с базой данных.
func (r *RedisRepo) Close() {
	r.client.Close()
}

func productKey(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}
