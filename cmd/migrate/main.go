package main

import (
	"context"
	"os"

	"github.com/upscwallahhacker-cell/Desikart/config"
	"github.com/upscwallahhacker-cell/Desikart/internal/database"
	"github.com/upscwallahhacker-cell/Desikart/internal/logger"
	"github.com/upscwallahhacker-cell/Desikart/internal/migrate"

	"go.uber.org/zap"

	"github.com/joho/godotenv"
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

	ctx := context.Background()

	opts := migrate.DefaultMigrateOptions()

	if err := migrate.MigrateStoreDB(ctx, db, log, opts); err != nil {
		log.Fatal("Ошибка при выполнении миграции", zap.Error(err))
	}

	log.Info("Миграция успешно завершена")
}
