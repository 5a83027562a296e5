package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pingTimeout    = 5 * time.Second
	opTimeout      = 2 * time.Second
	defaultPoolCap = 20
)

// Config describes the Redis instance backing the token denylist.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Connect opens a client and pings it once. Read and write timeouts are
// kept short: every denylist lookup sits on the request path.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolCap
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
