package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client caches stock levels for the dashboard and hands out coarse locks
// for bulk operations.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetStock caches the effective stock level of a product
func (c *Client) SetStock(ctx context.Context, productID string, quantity int) error {
	return c.rdb.Set(ctx, fmt.Sprintf("stock:%s", productID), quantity, 0).Err()
}

// GetStock reads a cached stock level. Returns ok=false on a cache miss.
func (c *Client) GetStock(ctx context.Context, productID string) (int, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("stock:%s", productID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	quantity, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt stock value for %s: %w", productID, err)
	}

	return quantity, true, nil
}

// InvalidateStock drops a cached stock level
func (c *Client) InvalidateStock(ctx context.Context, productID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("stock:%s", productID)).Err()
}

// AcquireLock acquires a coarse lock for a bulk operation. Returns false
// when another run already holds it.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a bulk-operation lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}

// SetLastRefresh records when the last bulk status refresh finished
func (c *Client) SetLastRefresh(ctx context.Context, at time.Time) error {
	return c.rdb.Set(ctx, "status_refresh:last_run", at.Format(time.RFC3339), 0).Err()
}

// GetLastRefresh returns the time of the last bulk status refresh, zero if
// none has run yet
func (c *Client) GetLastRefresh(ctx context.Context) (time.Time, error) {
	val, err := c.rdb.Get(ctx, "status_refresh:last_run").Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, val)
}
