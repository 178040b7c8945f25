package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/upscwallahhacker-cell/Desikart/internal/database"

	"go.uber.org/zap"
)

type Config struct {
	Port       string
	AdminEmail string
	DB         DB
	Redis      Redis
	Auth       Auth
	Kafka      Kafka

	// Путь к локальной sqlite-базе (корзина, кэш сессии).
	LocalDBPath string
}

type DB struct {
	database.Config
}

type Redis struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type Auth struct {
	AccessSecret string
	AccessTTL    time.Duration
}

type Kafka struct {
	Enabled bool
	Brokers []string
	Topic   string
}

func Load(log *zap.Logger) *Config {
	return &Config{
		Port:       getEnv("APP_PORT", log),
		AdminEmail: getEnv("ADMIN_EMAIL", log),
		DB: DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnv("DB_SSLMODE", log),
			},
		},
		Redis: Redis{
			Enabled:  os.Getenv("REDIS_ENABLED") == "true",
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       atoiDefault(os.Getenv("REDIS_DB"), 0),
		},
		Auth: Auth{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", log),
			AccessTTL:    time.Duration(atoiDefault(os.Getenv("ACCESS_TTL_MINUTES"), 60*24)) * time.Minute,
		},
		Kafka: Kafka{
			Enabled: os.Getenv("KAFKA_ENABLED") == "true",
			Brokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			Topic:   envDefault("KAFKA_TOPIC_ORDERS", "deshikart.orders"),
		},
		LocalDBPath: envDefault("LOCAL_DB_PATH", "deshikart.db"),
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func envDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
