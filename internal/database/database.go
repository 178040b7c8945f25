package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func ConnectDB(cfg *Config, log *zap.Logger) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatal("Не удалось подключиться к базе данных", zap.Error(err))
	}
	log.Info("Подключение к базе данных установлено", zap.String("host", cfg.Host), zap.String("db", cfg.Name))
	return db
}

func CloseDB(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("Не удалось получить sql.DB для закрытия", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("Ошибка при закрытии соединения с базой", zap.Error(err))
	}
}
