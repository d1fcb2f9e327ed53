package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/domain/repository"
	"StayMap-App/internal/infrastructure/database"
)

type SupabasePropertiesRepository struct {
	client *database.SupabaseClient
}

func NewSupabasePropertiesRepository(client *database.SupabaseClient) repository.PropertiesRepository {
	return &SupabasePropertiesRepository{
		client: client,
	}
}

// QueryActive 掲載中の物件をすべて取得する
func (r *SupabasePropertiesRepository) QueryActive(ctx context.Context) ([]model.Property, error) {
	data, _, err := r.client.GetClient().From(propertiesTable).
		Select("*", "exact", false).
		Eq("status", model.PropertyStatusActive).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("物件データの取得失敗: %w", err)
	}

	var rows []PropertyRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("物件データのJSONアンマーシャル失敗: %w", err)
	}

	return rowsToProperties(rows), nil
}
