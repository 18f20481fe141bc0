package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	redisdb *redis.Client
	prefix  string
}

type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key this client writes.
	Prefix string
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "tasktracker:"
	}

	return &Client{redisdb: redisdb, prefix: prefix}
}

// Ping checks redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// Hit increments the fixed-window counter for key and returns the new count
// and the time left in the window. The first hit of a window sets its expiry.
func (c *Client) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	full := c.prefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd

	_, err := c.redisdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, full)
		pipe.ExpireNX(ctx, full, window)
		ttl = pipe.PTTL(ctx, full)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	left := ttl.Val()
	if left < 0 {
		left = window
	}

	return incr.Val(), left, nil
}
