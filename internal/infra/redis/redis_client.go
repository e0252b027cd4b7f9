// File: internal/infra/redis/redis_client.go
package redis

import (
	"context"
	"errors"
	"time"

	"handyai-billing/internal/config"

	"github.com/go-redis/redis/v8"
)

// ErrNil is returned by Get/BRPop when the key or queue is empty.
var ErrNil = redis.Nil

type RedisClient interface {
	Ping(ctx context.Context) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	LPush(ctx context.Context, key string, value interface{}) error
	RPush(ctx context.Context, key string, value interface{}) error
	BRPop(ctx context.Context, timeout time.Duration, key string) (string, error)
	BRPopLPush(ctx context.Context, timeout time.Duration, source, destination string) (string, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LRem(ctx context.Context, key string, count int64, value interface{}) error
	Del(ctx context.Context, keys ...string) error
	Close() error
}

var _ RedisClient = (*redClient)(nil)

type redClient struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redClient, error) {
	opts := &redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &redClient{cli: c}, nil
}

func (c *redClient) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

func (c *redClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.cli.Set(ctx, key, value, expiration).Err()
}

func (c *redClient) Get(ctx context.Context, key string) (string, error) {
	return c.cli.Get(ctx, key).Result()
}

func (c *redClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return c.cli.SetNX(ctx, key, value, expiration).Result()
}

func (c *redClient) LPush(ctx context.Context, key string, value interface{}) error {
	return c.cli.LPush(ctx, key, value).Err()
}

func (c *redClient) RPush(ctx context.Context, key string, value interface{}) error {
	return c.cli.RPush(ctx, key, value).Err()
}

// BRPop pops from the tail of the list, waiting up to timeout. Returns ErrNil
// when the queue stayed empty.
func (c *redClient) BRPop(ctx context.Context, timeout time.Duration, key string) (string, error) {
	res, err := c.cli.BRPop(ctx, timeout, key).Result()
	if err != nil {
		return "", err
	}
	if len(res) != 2 {
		return "", errors.New("brpop: unexpected reply shape")
	}
	return res[1], nil
}

// BRPopLPush atomically moves the tail of source onto the head of
// destination, waiting up to timeout. Returns ErrNil when source stayed
// empty.
func (c *redClient) BRPopLPush(ctx context.Context, timeout time.Duration, source, destination string) (string, error) {
	return c.cli.BRPopLPush(ctx, source, destination, timeout).Result()
}

func (c *redClient) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.cli.LRange(ctx, key, start, stop).Result()
}

func (c *redClient) LRem(ctx context.Context, key string, count int64, value interface{}) error {
	return c.cli.LRem(ctx, key, count, value).Err()
}

func (c *redClient) Del(ctx context.Context, keys ...string) error {
	return c.cli.Del(ctx, keys...).Err()
}

func (c *redClient) Close() error { return c.cli.Close() }
