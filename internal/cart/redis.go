package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/redis/go-redis/v9"
)

// RedisPersister keeps carts in redis under "cart:<userID>". Carts survive
// sessions, so entries carry no TTL.
type RedisPersister struct {
	client *redis.Client
}

func NewRedisPersister(client *redis.Client) *RedisPersister {
	return &RedisPersister{client: client}
}

func (r *RedisPersister) Load(ctx context.Context, userID int64) ([]models.CartLine, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // no cart yet
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var lines []models.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return lines, nil
}

func (r *RedisPersister) Save(ctx context.Context, userID int64, lines []models.CartLine) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := r.client.Set(ctx, cartKey(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisPersister) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cartKey(userID int64) string {
	return fmt.Sprintf("cart:%d", userID)
}
