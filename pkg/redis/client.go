package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-redis/redis/v8"
)

const connectTimeout = 5 * time.Second

// Config locates the Redis that backs the shared rate limit windows and the
// cross-replica email lock. URL wins over the individual parts.
type Config struct {
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) options() (*redis.Options, error) {
	if c.URL != "" {
		opts, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("redis: invalid url: %w", err)
		}
		return opts, nil
	}
	if c.Host == "" {
		return nil, errors.New("redis: host or url is required")
	}
	return &redis.Options{Addr: c.Addr(), Password: c.Password, DB: c.DB}, nil
}

// Connection is a client that answered a ping when it was opened.
type Connection struct {
	client *redis.Client
}

func Connect(ctx context.Context, cfg *Config) (*Connection, error) {
	if cfg == nil {
		return nil, errors.New("redis: config is required")
	}
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}

	return &Connection{client: client}, nil
}

func (c *Connection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Connection) Close() error {
	return c.client.Close()
}

func (c *Connection) Client() *redis.Client {
	return c.client
}
