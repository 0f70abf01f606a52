package rediscache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goodslice/pizza-fulfillment/internal/domain/loyalty"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/redis/go-redis/v9"
)

// balanceKey formats the cache key for a customer's points projection.
const balanceKey = "loyalty:balance:%s"

// ttl keeps stale projections from living forever if updates stop flowing.
const ttl = 24 * time.Hour

// BalanceCache is the Redis-backed loyalty balance projection. It is a
// secondary read path; the ledger stays authoritative.
type BalanceCache struct {
	rdb *redis.Client
}

var _ ports.BalanceCache = (*BalanceCache)(nil)

// New connects a client for the given address.
func New(addr string) *BalanceCache {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &BalanceCache{rdb: rdb}
}

// NewFromClient wraps an existing client (used by tests with miniature servers).
func NewFromClient(rdb *redis.Client) *BalanceCache {
	return &BalanceCache{rdb: rdb}
}

// SetBalance stores the balance as a string under the normalized customer key.
func (c *BalanceCache) SetBalance(ctx context.Context, customerID string, balance int64) error {
	key := fmt.Sprintf(balanceKey, loyalty.NormalizeCustomerID(customerID))
	return c.rdb.Set(ctx, key, strconv.FormatInt(balance, 10), ttl).Err()
}

// GetBalance reads the projection. The second return is false on a miss.
func (c *BalanceCache) GetBalance(ctx context.Context, customerID string) (int64, bool, error) {
	key := fmt.Sprintf(balanceKey, loyalty.NormalizeCustomerID(customerID))
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	balance, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("rediscache: corrupt balance projection for %s: %w", customerID, err)
	}
	return balance, true, nil
}

// Close releases the underlying client.
func (c *BalanceCache) Close() error {
	return c.rdb.Close()
}
