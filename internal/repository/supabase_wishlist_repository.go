package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/domain/repository"
	"StayMap-App/internal/infrastructure/database"
)

const wishlistsTable = "wishlists"

type SupabaseWishlistRepository struct {
	client *database.SupabaseClient
}

func NewSupabaseWishlistRepository(client *database.SupabaseClient) repository.WishlistRepository {
	return &SupabaseWishlistRepository{
		client: client,
	}
}

// ListForUser ユーザーのお気に入り物件IDを取得する
func (r *SupabaseWishlistRepository) ListForUser(ctx context.Context, userID string) ([]string, error) {
	data, _, err := r.client.GetClient().From(wishlistsTable).
		Select("property_id", "exact", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("お気に入りの取得失敗: %w", err)
	}

	var entries []model.WishlistEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("お気に入りのJSONアンマーシャル失敗: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.PropertyID)
	}
	return ids, nil
}

// Add お気に入りを追加する（既に存在する場合も成功扱い）
func (r *SupabaseWishlistRepository) Add(ctx context.Context, userID, propertyID string) error {
	// postgrest-go が値をJSONに変換するので、構造体をそのまま渡す
	entry := model.NewWishlistEntry(userID, propertyID)
	_, _, err := r.client.GetClient().From(wishlistsTable).
		Insert(entry, true, "user_id,property_id", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("お気に入りの追加失敗: %w", err)
	}
	return nil
}

// Remove お気に入りを削除する
func (r *SupabaseWishlistRepository) Remove(ctx context.Context, userID, propertyID string) error {
	_, _, err := r.client.GetClient().From(wishlistsTable).
		Delete("minimal", "").
		Eq("user_id", userID).
		Eq("property_id", propertyID).
		Execute()
	if err != nil {
		return fmt.Errorf("お気に入りの削除失敗: %w", err)
	}
	return nil
}
