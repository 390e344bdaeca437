// Package cache keeps short-lived state in Redis: password reset tokens and cached product reads.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arzan03/shopfront/internal/config"
	"github.com/arzan03/shopfront/internal/models"
	"github.com/arzan03/shopfront/internal/repository"
	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout = 5 * time.Second

	resetTokenKeyPrefix = "reset:"
	productKeyPrefix    = "product:"
)

func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if _, err := client.Ping(dialCtx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis (ping failed): %w", err)
	}
	return client, nil
}

// ResetTokenStore keys tokens by their sha256 so a dump of Redis does not expose usable tokens.
type ResetTokenStore struct {
	client *redis.Client
}

func NewResetTokenStore(client *redis.Client) *ResetTokenStore {
	return &ResetTokenStore{client: client}
}

func resetKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return resetTokenKeyPrefix + hex.EncodeToString(sum[:])
}

func (s *ResetTokenStore) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, resetKey(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

// Consume reads and deletes the token in one GETDEL, so a token can be used only once.
func (s *ResetTokenStore) Consume(ctx context.Context, token string) (string, error) {
	userID, err := s.client.GetDel(ctx, resetKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("failed to consume reset token: %w", err)
	}
	return userID, nil
}

type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

func (c *ProductCache) key(id string) string {
	return productKeyPrefix + id
}

func (c *ProductCache) Get(ctx context.Context, id string) (*models.Product, error) {
	val, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product %s from redis: %w", id, err)
	}

	var product models.Product
	if err := json.Unmarshal(val, &product); err != nil {
		_ = c.Delete(ctx, id)
		return nil, fmt.Errorf("failed to unmarshal cached product %s: %w", id, err)
	}
	return &product, nil
}

func (c *ProductCache) Set(ctx context.Context, product *models.Product) error {
	if product == nil || product.ID.IsZero() {
		return errors.New("cannot cache nil product or product without id")
	}
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product %s: %w", product.ID.Hex(), err)
	}
	if err := c.client.Set(ctx, c.key(product.ID.Hex()), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache product %s: %w", product.ID.Hex(), err)
	}
	return nil
}

func (c *ProductCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete product %s from redis: %w", id, err)
	}
	return nil
}
