package repository

import (
	"context"

	"StayMap-App/internal/domain/model"
)

// PreferenceRepository ユーザー設定の永続化を担うリポジトリインターフェース
type PreferenceRepository interface {
	// GetViewMode 保存済みの表示モードを取得する。未保存の場合は model.ErrNotFound
	GetViewMode(ctx context.Context, userID string) (model.ViewMode, error)
	SaveViewMode(ctx context.Context, userID string, mode model.ViewMode) error
}
