package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	StoreMongo = "mongo"
	StoreRedis = "redis"

	defaultMongoURI      = "mongodb://localhost:27017/flipball"
	defaultMongoDatabase = "flipball"
)

type Config struct {
	Port string
	Env  string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string

	RedisURL  string
	RedisPass string
	RedisDB   int

	LogLevel logrus.Level
}

// Load reads the process environment. Defaults match a local docker setup.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "3000"),
		Env:         getEnv("APP_ENV", "development"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		MongoURI:    getEnv("MONGO_URI", defaultMongoURI),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
	}

	switch cfg.StoreDriver {
	case StoreMongo, StoreRedis:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want %q or %q", cfg.StoreDriver, StoreMongo, StoreRedis)
	}

	cfg.MongoDatabase = os.Getenv("MONGO_DATABASE")
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = databaseFromURI(cfg.MongoURI)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultMongoDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return defaultMongoDatabase
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
