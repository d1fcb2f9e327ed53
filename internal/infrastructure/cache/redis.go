package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"StayMap-App/internal/config"
	"StayMap-App/internal/infrastructure/logging"
)

// NewRedisClient オートコンプリート候補のキャッシュ用Redisクライアントを作成
//
// REDIS_ADDR が未設定の場合は nil を返し、キャッシュなしで動作する。
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		logging.Info().Msg("REDIS_ADDR未設定のため候補キャッシュを無効化")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redisへの接続に失敗: %w", err)
	}
	logging.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("✅ Redis接続完了")
	return client, nil
}
