package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/S1l3ntium/yandex-price-bot/internal/bot"
	"github.com/S1l3ntium/yandex-price-bot/internal/config"
	checkCycle "github.com/S1l3ntium/yandex-price-bot/internal/http-server/handlers/check"
	addProduct "github.com/S1l3ntium/yandex-price-bot/internal/http-server/handlers/products/add"
	deleteProduct "github.com/S1l3ntium/yandex-price-bot/internal/http-server/handlers/products/delete"
	getProducts "github.com/S1l3ntium/yandex-price-bot/internal/http-server/handlers/products/get"
	resp "github.com/S1l3ntium/yandex-price-bot/internal/lib/api/response"
	"github.com/S1l3ntium/yandex-price-bot/internal/lib/fetcher"
	sl "github.com/S1l3ntium/yandex-price-bot/internal/lib/logger"
	authMiddlware "github.com/S1l3ntium/yandex-price-bot/internal/middleware/auth"
	"github.com/S1l3ntium/yandex-price-bot/internal/monitor"
	"github.com/S1l3ntium/yandex-price-bot/internal/products"
	"github.com/S1l3ntium/yandex-price-bot/internal/scheduler"
	"github.com/S1l3ntium/yandex-price-bot/internal/storage/postgres"
	"github.com/S1l3ntium/yandex-price-bot/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting price bot", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	// * Инициализация Redis
	redisClient, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Db, cfg.Redis.DefaultTTL)
	if err != nil {
		log.Error("failed to connect redis", sl.Err(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	// * Инициализация PostgreSQL
	postgresClient, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgreSQL", sl.Err(err))
		os.Exit(1)
	}
	defer postgresClient.Close()

	if err := postgresClient.Bootstrap(ctx); err != nil {
		log.Error("failed to bootstrap database", sl.Err(err))
		os.Exit(1)
	}

	// * Инициализация fetcher'а
	fetcherClient := fetcher.New(cfg)

	// * Инициализация Products Operator
	prodOp := products.New(
		postgresClient,
		redisClient,
		fetcherClient,
		cfg.Monitor.DefaultThreshold,
	)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Error("failed to connect telegram", sl.Err(err))
		os.Exit(1)
	}

	// * Инициализация монитора цен
	priceMonitor := monitor.New(log, postgresClient, fetcherClient, bot.NewNotifier(api))

	// Интервал переживает перезапуск: из settings, иначе из конфига.
	interval, err := postgresClient.CheckInterval(ctx)
	if err != nil {
		log.Error("failed to read check interval", sl.Err(err))
		os.Exit(1)
	}

	// * Инициализация планировщика
	sched := scheduler.New(log, priceMonitor, interval)
	if err := sched.Start(ctx); err != nil {
		log.Error("failed to start scheduler", sl.Err(err))
		os.Exit(1)
	}
	defer sched.Stop()

	tgBot := bot.New(
		api,
		log,
		cfg.Telegram.AdminIDs,
		prodOp,
		postgresClient,
		sched,
		priceMonitor,
	)

	requestValidator := validator.New()

	router := setupRouter(
		log,
		requestValidator,
		cfg.Telegram.AdminIDs,
		prodOp,
		priceMonitor,
	)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("http server started", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", sl.Err(err))
			cancel()
		}
	}()

	// Блокируется до отмены контекста.
	if err := tgBot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped", sl.Err(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", sl.Err(err))
	}

	log.Info("price bot stopped")
}

func setupRouter(
	log *slog.Logger,
	validate *validator.Validate,
	adminIDs []int64,
	prodOp *products.ProductOperator,
	checker *monitor.Monitor,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, resp.OK())
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddlware.New(adminIDs))

		r.Post("/product", addProduct.New(log, prodOp, validate))
		r.Get("/products", getProducts.New(log, prodOp))
		r.Delete("/product", deleteProduct.New(log, prodOp))
		r.Post("/check", checkCycle.New(log, checker))
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
