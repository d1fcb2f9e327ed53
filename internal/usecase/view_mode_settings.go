package usecase

import (
	"context"
	"errors"
	"sync"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/domain/repository"
	"StayMap-App/internal/infrastructure/logging"
)

// ViewModeSettings 表示モード（地図/一覧）の設定オブジェクト
//
// 未設定のユーザーは DefaultViewMode。Set は永続化に成功した場合のみ値を更新する。
// repoがnilの場合はメモリ上だけで保持する。
type ViewModeSettings struct {
	repo repository.PreferenceRepository

	mu    sync.RWMutex
	modes map[string]model.ViewMode
}

// NewViewModeSettings 新しいViewModeSettingsを作成
func NewViewModeSettings(repo repository.PreferenceRepository) *ViewModeSettings {
	return &ViewModeSettings{
		repo:  repo,
		modes: make(map[string]model.ViewMode),
	}
}

// Get ユーザーの表示モード。取得に失敗した場合もデフォルトを返す
func (s *ViewModeSettings) Get(ctx context.Context, userID string) model.ViewMode {
	s.mu.RLock()
	mode, ok := s.modes[userID]
	s.mu.RUnlock()
	if ok {
		return mode
	}
	if s.repo == nil || userID == "" {
		return model.DefaultViewMode
	}

	mode, err := s.repo.GetViewMode(ctx, userID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			logging.Warn().Err(err).Str("user_id", userID).Msg("⚠️ 表示モードの取得に失敗、デフォルトを使用")
			return model.DefaultViewMode
		}
		mode = model.DefaultViewMode
	}

	s.mu.Lock()
	s.modes[userID] = mode
	s.mu.Unlock()
	return mode
}

// Set 表示モードを変更して永続化する
func (s *ViewModeSettings) Set(ctx context.Context, userID string, mode model.ViewMode) error {
	if _, err := model.ParseViewMode(string(mode)); err != nil {
		return err
	}
	if userID == "" {
		return model.ErrNotAuthenticated
	}
	if s.repo != nil {
		if err := s.repo.SaveViewMode(ctx, userID, mode); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.modes[userID] = mode
	s.mu.Unlock()
	return nil
}
