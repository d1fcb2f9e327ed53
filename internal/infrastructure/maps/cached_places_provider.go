package maps

import (
	"context"
	"strings"
	"time"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/domain/repository"
	"StayMap-App/internal/infrastructure/logging"
	"StayMap-App/internal/infrastructure/metrics"
)

// CachedPlacesProvider 候補の問い合わせ結果をキャッシュするデコレーター
//
// キャッシュの読み書きに失敗しても問い合わせ自体は継続する。
type CachedPlacesProvider struct {
	next  repository.PlacesProvider
	cache repository.PredictionCache
	ttl   time.Duration
}

// NewCachedPlacesProvider cacheがnilの場合はnextをそのまま返す
func NewCachedPlacesProvider(next repository.PlacesProvider, cache repository.PredictionCache, ttl time.Duration) repository.PlacesProvider {
	if cache == nil {
		return next
	}
	return &CachedPlacesProvider{next: next, cache: cache, ttl: ttl}
}

// PredictionCacheKey 国コードと正規化した入力からキーを作る
func PredictionCacheKey(text, country string) string {
	return "places:predict:" + strings.ToLower(country) + ":" + strings.ToLower(strings.TrimSpace(text))
}

func (c *CachedPlacesProvider) Predict(ctx context.Context, text, country string) ([]model.Prediction, error) {
	key := PredictionCacheKey(text, country)

	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("⚠️ 候補キャッシュの読み込みに失敗")
	} else if ok {
		metrics.PlacesCalls.WithLabelValues("predict", "cache_hit").Inc()
		return cached, nil
	}

	predictions, err := c.next.Predict(ctx, text, country)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, predictions, c.ttl); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("⚠️ 候補キャッシュの書き込みに失敗")
	}
	return predictions, nil
}

func (c *CachedPlacesProvider) Resolve(ctx context.Context, placeID string) (*model.PlaceDetails, error) {
	return c.next.Resolve(ctx, placeID)
}
