package migrate

import (
	"context"

	"github.com/upscwallahhacker-cell/Desikart/internal/docstore"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions bool // pgcrypto
	CreateChecks     bool // CHECK на валидность JSONB
	CreateIndexes    bool // индекс по коллекции и updated_at
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions: true,
		CreateChecks:     true,
		CreateIndexes:    true,
	}
}

// MigrateStoreDB создаёт таблицу documents — единственную таблицу удалённого стора.
func MigrateStoreDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции документного стора")

	if opt.CreateExtensions {
		if err := db.WithContext(ctx).Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("Не удалось включить расширение pgcrypto", zap.Error(err))
			return err
		}
	}

	log.Info("Создание таблицы documents")
	if err := db.WithContext(ctx).AutoMigrate(&docstore.DocumentRow{}); err != nil {
		log.Error("Не удалось создать таблицу documents", zap.Error(err))
		return err
	}

	if opt.CreateChecks {
		if err := db.WithContext(ctx).Exec(`
ALTER TABLE documents DROP CONSTRAINT IF EXISTS chk_documents_object;
ALTER TABLE documents ADD CONSTRAINT chk_documents_object CHECK (jsonb_typeof(data) = 'object');
`).Error; err != nil {
			log.Error("Не удалось создать CHECK-ограничение", zap.Error(err))
			return err
		}
	}

	if opt.CreateIndexes {
		if err := db.WithContext(ctx).Exec(`
CREATE INDEX IF NOT EXISTS ix_documents_collection_updated ON documents (collection, updated_at);
`).Error; err != nil {
			log.Error("Не удалось создать индексы", zap.Error(err))
			return err
		}
	}

	log.Info("Миграция документного стора успешно завершена")
	return nil
}
