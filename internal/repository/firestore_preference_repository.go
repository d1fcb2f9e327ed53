package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/domain/repository"
	"StayMap-App/internal/infrastructure/logging"
)

const preferencesCollection = "userPreferences"

// preferenceDocument userPreferences/{userID} のドキュメント
type preferenceDocument struct {
	ViewMode  string    `firestore:"viewMode"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// FirestorePreferenceRepository Firestoreを使用したユーザー設定リポジトリ
type FirestorePreferenceRepository struct {
	client *firestore.Client
}

// NewFirestorePreferenceRepository 新しいFirestorePreferenceRepositoryインスタンスを作成
func NewFirestorePreferenceRepository(client *firestore.Client) repository.PreferenceRepository {
	return &FirestorePreferenceRepository{
		client: client,
	}
}

// GetViewMode 保存済みの表示モードを取得する。未保存なら model.ErrNotFound
func (r *FirestorePreferenceRepository) GetViewMode(ctx context.Context, userID string) (model.ViewMode, error) {
	doc, err := r.client.Collection(preferencesCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", model.ErrNotFound
		}
		return "", fmt.Errorf("ユーザー設定の取得に失敗しました: %w", err)
	}

	var data preferenceDocument
	if err := doc.DataTo(&data); err != nil {
		return "", fmt.Errorf("データの変換に失敗しました: %w", err)
	}
	if data.ViewMode == "" {
		return "", model.ErrNotFound
	}
	return model.ParseViewMode(data.ViewMode)
}

// SaveViewMode 表示モードを保存する
func (r *FirestorePreferenceRepository) SaveViewMode(ctx context.Context, userID string, mode model.ViewMode) error {
	_, err := r.client.Collection(preferencesCollection).Doc(userID).Set(ctx, preferenceDocument{
		ViewMode:  string(mode),
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("❌ 表示モードの保存に失敗")
		return fmt.Errorf("ユーザー設定の保存に失敗しました: %w", err)
	}
	logging.Debug().Str("user_id", userID).Str("view_mode", string(mode)).Msg("✅ 表示モードを保存")
	return nil
}
