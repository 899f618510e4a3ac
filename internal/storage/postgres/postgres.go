package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/S1l3ntium/yandex-price-bot/internal/config"
	"github.com/S1l3ntium/yandex-price-bot/internal/models"
	"github.com/S1l3ntium/yandex-price-bot/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	pool *pgxpool.Pool

	// Интервал по умолчанию из конфига; используется, пока настройка не сохранена.
	defaultInterval int
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%s: ping failed: %w", op, err)
	}

	return &PostgresRepo{
		pool:            pool,
		defaultInterval: int(cfg.Monitor.CheckInterval.Minutes()),
	}, nil
}

// * Bootstrap создаёт таблицы, если их ещё нет.
func (r *PostgresRepo) Bootstrap(ctx context.Context) error {
	const op = "storage.postgres.Bootstrap"

	queries := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			url TEXT NOT NULL,
			name TEXT NOT NULL,
			last_price INTEGER NOT NULL CHECK (last_price >= 0),
			threshold INTEGER NOT NULL DEFAULT 500 CHECK (threshold > 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (user_id, url)
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id BIGSERIAL PRIMARY KEY,
			product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			price INTEGER NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_product_ts
			ON price_history (product_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := r.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// * SaveProduct добавляет товар и первую запись истории в одной транзакции.
func (r *PostgresRepo) SaveProduct(
	ctx context.Context,
	userID int64,
	productURL, name string,
	price, threshold int,
) (int64, error) {
	const op = "storage.postgres.SaveProduct"

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64

	err = tx.QueryRow(ctx,
		`INSERT INTO products (user_id, url, name, last_price, threshold)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		userID, productURL, name, price, threshold,
	).Scan(&id)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == storage.UniqueViolation {
			return 0, storage.ErrProductAlreadyTracked
		}

		return 0, fmt.Errorf("%s: failed to save product: %w", op, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO price_history (product_id, price) VALUES ($1, $2)`,
		id, price,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to save initial history: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", op, err)
	}

	return id, nil
}

// * Product возвращает товар по ID.
func (r *PostgresRepo) Product(ctx context.Context, productID int64) (models.Product, error) {
	const op = "storage.postgres.Product"

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, url, name, last_price, threshold, created_at
		 FROM products
		 WHERE id = $1`,
		productID,
	)
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: query: %w", op, err)
	}

	p, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Product])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Product{}, storage.ErrProductNotFound
		}

		return models.Product{}, fmt.Errorf("%s: failed to scan product: %w", op, err)
	}

	return p, nil
}

// * UserProducts возвращает товары пользователя.
func (r *PostgresRepo) UserProducts(ctx context.Context, userID int64) ([]models.Product, error) {
	const op = "storage.postgres.UserProducts"

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, url, name, last_price, threshold, created_at
		 FROM products
		 WHERE user_id = $1
		 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}

	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Product])
	if err != nil {
		return nil, fmt.Errorf("%s: collect: %w", op, err)
	}

	return products, nil
}

// * AllProducts возвращает все отслеживаемые товары для цикла проверки цен.
func (r *PostgresRepo) AllProducts(ctx context.Context) ([]models.Product, error) {
	const op = "storage.postgres.AllProducts"

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, url, name, last_price, threshold, created_at
		 FROM products
		 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}

	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Product])
	if err != nil {
		return nil, fmt.Errorf("%s: collect: %w", op, err)
	}

	return products, nil
}

// * UpdatePrice обновляет last_price и добавляет запись истории в одной транзакции.
func (r *PostgresRepo) UpdatePrice(ctx context.Context, productID int64, newPrice int) error {
	const op = "storage.postgres.UpdatePrice"

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cmd, err := tx.Exec(ctx,
		`UPDATE products SET last_price = $1 WHERE id = $2`,
		newPrice, productID,
	)
	if err != nil {
		return fmt.Errorf("%s: update: %w", op, err)
	}

	if cmd.RowsAffected() == 0 {
		return storage.ErrProductNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO price_history (product_id, price) VALUES ($1, $2)`,
		productID, newPrice,
	)
	if err != nil {
		return fmt.Errorf("%s: history insert: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

// * SetThreshold меняет порог уведомлений; только для владельца товара.
func (r *PostgresRepo) SetThreshold(ctx context.Context, productID, userID int64, threshold int) error {
	const op = "storage.postgres.SetThreshold"

	cmd, err := r.pool.Exec(ctx,
		`UPDATE products SET threshold = $1 WHERE id = $2 AND user_id = $3`,
		threshold, productID, userID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmd.RowsAffected() == 0 {
		return storage.ErrProductNotFound
	}

	return nil
}

// * DeleteProduct удаляет товар по productID и userID.
func (r *PostgresRepo) DeleteProduct(ctx context.Context, productID, userID int64) error {
	const op = "storage.postgres.DeleteProduct"

	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM products WHERE id = $1 AND user_id = $2`,
		productID, userID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmd.RowsAffected() == 0 {
		return storage.ErrProductNotFound
	}

	return nil
}

// * PriceHistory возвращает историю цен за последний период, по возрастанию времени.
func (r *PostgresRepo) PriceHistory(ctx context.Context, productID int64, since time.Duration) ([]models.PricePoint, error) {
	const op = "storage.postgres.PriceHistory"

	rows, err := r.pool.Query(ctx,
		`SELECT price, timestamp
		 FROM price_history
		 WHERE product_id = $1 AND timestamp >= now() - $2::interval
		 ORDER BY timestamp`,
		productID, since.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	var points []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Price, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}

// * CheckInterval возвращает сохранённый интервал проверки в минутах.
// Пока настройка не сохранялась, действует интервал из конфига.
func (r *PostgresRepo) CheckInterval(ctx context.Context) (int, error) {
	const op = "storage.postgres.CheckInterval"

	var value string

	err := r.pool.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`,
		storage.CheckIntervalKey,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.defaultInterval, nil
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	minutes, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid stored value %q: %w", op, value, err)
	}

	return minutes, nil
}

// * SetCheckInterval сохраняет интервал проверки; переживает перезапуск процесса.
func (r *PostgresRepo) SetCheckInterval(ctx context.Context, minutes int) error {
	const op = "storage.postgres.SetCheckInterval"

	_, err := r.pool.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		storage.CheckIntervalKey, strconv.Itoa(minutes),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Close закрывает соединение с базой данных.
func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
