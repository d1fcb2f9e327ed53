package repository

import (
	"context"
	"time"

	"StayMap-App/internal/domain/model"
)

// PlacesProvider 外部のジオコーディング/プレイスサービス
type PlacesProvider interface {
	// Predict 入力文字列から候補を返す。countryが空なら国の絞り込みなし
	Predict(ctx context.Context, text, country string) ([]model.Prediction, error)
	// Resolve 候補IDから正確な座標を解決する
	Resolve(ctx context.Context, predictionID string) (*model.PlaceDetails, error)
}

// PredictionCache オートコンプリート結果のキャッシュ
type PredictionCache interface {
	Get(ctx context.Context, key string) ([]model.Prediction, bool, error)
	Set(ctx context.Context, key string, predictions []model.Prediction, ttl time.Duration) error
}
