package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/domain/repository"
)

// RedisPredictionCache オートコンプリート候補をJSONで保存するRedisキャッシュ
type RedisPredictionCache struct {
	client *redis.Client
}

// NewRedisPredictionCache clientがnilならnilを返す（キャッシュ無効）
func NewRedisPredictionCache(client *redis.Client) repository.PredictionCache {
	if client == nil {
		return nil
	}
	return &RedisPredictionCache{client: client}
}

func (c *RedisPredictionCache) Get(ctx context.Context, key string) ([]model.Prediction, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("候補キャッシュの取得に失敗: %w", err)
	}

	var predictions []model.Prediction
	if err := json.Unmarshal(raw, &predictions); err != nil {
		return nil, false, fmt.Errorf("候補キャッシュのJSONアンマーシャル失敗: %w", err)
	}
	return predictions, true, nil
}

func (c *RedisPredictionCache) Set(ctx context.Context, key string, predictions []model.Prediction, ttl time.Duration) error {
	payload, err := json.Marshal(predictions)
	if err != nil {
		return fmt.Errorf("候補キャッシュのJSONマーシャル失敗: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("候補キャッシュの保存に失敗: %w", err)
	}
	return nil
}
