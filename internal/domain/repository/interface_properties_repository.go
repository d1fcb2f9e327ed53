package repository

import (
	"context"

	"StayMap-App/internal/domain/model"
)

// PropertiesRepository 物件データの取得を担うリポジトリインターフェース
type PropertiesRepository interface {
	// QueryActive 掲載中の物件をすべて取得する（ページングなし）
	QueryActive(ctx context.Context) ([]model.Property, error)
}
