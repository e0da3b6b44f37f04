package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Agney-gt/sparklog-sub000/internal/config"
	"github.com/Agney-gt/sparklog-sub000/internal/logging"
)

// Client wraps the Redis client
type Client struct {
	*redis.Client
}

// Config holds Redis configuration
type Config struct {
	Host        string
	Port        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// LoadConfigFromEnv loads Redis configuration from environment variables
func LoadConfigFromEnv() *Config {
	return &Config{
		Host:        config.GetEnv("REDIS_HOST", "localhost"),
		Port:        config.GetEnv("REDIS_PORT", "6379"),
		Password:    config.GetEnv("REDIS_PASSWORD", ""),
		DB:          config.GetEnvAsInt("REDIS_DB", 0),
		PoolSize:    config.GetEnvAsInt("REDIS_POOL_SIZE", 10),
		DialTimeout: config.GetEnvAsDuration("REDIS_DIAL_TIMEOUT", 10*time.Second),
	}
}

// NewClient creates a new Redis client with the provided configuration
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolTimeout:  10 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log := logging.Component("redis")
	log.Infof("Connected to %s (DB: %d)", addr, cfg.DB)
	log.Debugf("Pool config: PoolSize=%d", cfg.PoolSize)

	return &Client{rdb}, nil
}
