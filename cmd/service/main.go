package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/upscwallahhacker-cell/Desikart/config"
	"github.com/upscwallahhacker-cell/Desikart/internal/auth"
	"github.com/upscwallahhacker-cell/Desikart/internal/cache"
	"github.com/upscwallahhacker-cell/Desikart/internal/cart"
	"github.com/upscwallahhacker-cell/Desikart/internal/catalog"
	"github.com/upscwallahhacker-cell/Desikart/internal/checkout"
	"github.com/upscwallahhacker-cell/Desikart/internal/database"
	"github.com/upscwallahhacker-cell/Desikart/internal/docstore"
	"github.com/upscwallahhacker-cell/Desikart/internal/handlers"
	"github.com/upscwallahhacker-cell/Desikart/internal/localstore"
	"github.com/upscwallahhacker-cell/Desikart/internal/logger"
	"github.com/upscwallahhacker-cell/Desikart/internal/orders"
	"github.com/upscwallahhacker-cell/Desikart/internal/producer"
	"github.com/upscwallahhacker-cell/Desikart/internal/router"
	"github.com/upscwallahhacker-cell/Desikart/internal/session"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	store := docstore.NewPostgres(db, 2*time.Second, log)

	local, err := localstore.OpenSQLite(cfg.LocalDBPath)
	if err != nil {
		log.Fatal("Не удалось открыть локальную базу", zap.Error(err))
	}
	defer local.Close()

	var cacheClient cache.Client
	if cfg.Redis.Enabled {
		rc, rerr := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if rerr != nil {
			log.Fatal("Не удалось подключиться к Redis", zap.Error(rerr))
		}
		defer rc.Close()
		cacheClient = rc
	}

	tokens := auth.NewHSProvider(cfg.Auth.AccessSecret, "deshikart", "deshikart-app")
	provider := auth.NewLocalProvider(store, local, tokens, auth.BcryptHasher{}, cacheClient, nil, cfg.Auth.AccessTTL, log)

	sessions := session.NewManager(provider, store, cfg.AdminEmail, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sessions.Start(ctx); err != nil {
		log.Fatal("Не удалось запустить менеджер сессий", zap.Error(err))
	}

	catalogSync := catalog.NewSynchronizer(store, log)
	catalogSync.Start(ctx)
	defer catalogSync.Stop()

	// Event bus is optional (nil disables publishing)
	var bus orders.EventBus
	if cfg.Kafka.Enabled {
		p := producer.NewOrderEventProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer p.Close()
		bus = p
	}

	orderStore := orders.NewStore(store, bus, log)
	orderStore.Start(ctx)
	defer orderStore.Stop()

	carts := cart.NewCarts(local, log)
	co := checkout.NewOrchestrator(carts, orderStore, catalogSync, sessions, log)

	r := router.Router(router.Deps{
		Provider: provider,
		Sessions: sessions,
		Auth:     handlers.NewAuthHandler(sessions, provider, log),
		Catalog:  handlers.NewCatalogHandler(catalogSync, log),
		Cart:     handlers.NewCartHandler(carts, catalogSync, log),
		Orders:   handlers.NewOrderHandler(orderStore, co, log),
		Log:      log,
	})

	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("HTTP сервер запущен", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Ошибка HTTP сервера", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Останавливаем сервер...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Ошибка при остановке сервера", zap.Error(err))
	}
	log.Info("Сервер остановлен")
}
