// Package cache keeps recently read wallets in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pricing-wallet/wallet-service/internal/models"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// storeIfNewer writes the wallet only when no entry with the same or a higher
// version is cached, so a slow read-through fill cannot replace a committed write.
var storeIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

type WalletCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewWalletCache(client *redis.Client, ttl time.Duration) *WalletCache {
	return &WalletCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *WalletCache) GetWallet(ctx context.Context, id int64) (*models.Wallet, error) {
	val, err := c.client.HGet(ctx, walletKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var wallet models.Wallet
	if err := json.Unmarshal(val, &wallet); err != nil {
		return nil, fmt.Errorf("decode cached wallet %d: %w", id, err)
	}
	return &wallet, nil
}

// SetWallet caches wallet unless a newer version of it is already cached.
func (c *WalletCache) SetWallet(ctx context.Context, wallet *models.Wallet) error {
	data, err := json.Marshal(wallet)
	if err != nil {
		return err
	}
	return storeIfNewer.Run(ctx, c.client,
		[]string{walletKey(wallet.ID)},
		wallet.Version, data, c.ttl.Milliseconds(),
	).Err()
}

func (c *WalletCache) InvalidateWallet(ctx context.Context, id int64) error {
	return c.client.Del(ctx, walletKey(id)).Err()
}

func (c *WalletCache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

func walletKey(id int64) string {
	return fmt.Sprintf("wallet:id:%d", id)
}
