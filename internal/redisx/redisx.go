// Package redisx opens the optional Redis client that backs rate limiting.
package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"fiber-ent-blog/internal/config"
	"fiber-ent-blog/internal/logx"
)

// Client is an alias for a Redis client
type Client = redis.Client

// Open returns nil without error when REDIS_ADDR is empty.
func Open(cfg *config.Config) (*Client, func(), error) {
	if cfg.Redis.Addr == "" {
		return nil, func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
	})
	if err := Ping(context.Background(), rdb); err != nil {
		_ = rdb.Close()
		return nil, func() {}, err
	}
	logx.GetScope("redis").Sugar().Infof("connected to %s (db %d)", cfg.Redis.Addr, cfg.Redis.DB)
	closer := func() { _ = rdb.Close() }
	return rdb, closer, nil
}

// Ping checks the connection with a short deadline. A nil client is healthy.
func Ping(ctx context.Context, rdb *Client) error {
	if rdb == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return rdb.Ping(ctx).Err()
}
