package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/domain/repository"
	"StayMap-App/internal/infrastructure/database"
)

type PostgresPropertiesRepository struct {
	client *database.PostgreSQLClient
}

func NewPostgresPropertiesRepository(client *database.PostgreSQLClient) repository.PropertiesRepository {
	return &PostgresPropertiesRepository{
		client: client,
	}
}

// queryActiveProperties locationはGeoJSON文字列として取得する（NULLは座標欠損）
const queryActiveProperties = `
SELECT id, title, price_per_night, ST_AsGeoJSON(location), category, COALESCE(address, ''),
       bedrooms, beds, bathrooms, guests, COALESCE(photos, '{}'), COALESCE(amenities, '{}')
FROM properties
WHERE status = $1
ORDER BY created_at, id`

// QueryActive 掲載中の物件をすべて取得する
func (r *PostgresPropertiesRepository) QueryActive(ctx context.Context) ([]model.Property, error) {
	rows, err := r.client.DB.QueryContext(ctx, queryActiveProperties, model.PropertyStatusActive)
	if err != nil {
		return nil, fmt.Errorf("物件データの取得失敗: %w", err)
	}
	defer rows.Close()

	var results []PropertyRow
	for rows.Next() {
		var (
			row      PropertyRow
			location sql.NullString
		)
		if err := rows.Scan(
			&row.ID, &row.Title, &row.PricePerNight, &location, &row.Category, &row.Address,
			&row.Bedrooms, &row.Beds, &row.Bathrooms, &row.Guests,
			pq.Array(&row.Photos), pq.Array(&row.Amenities),
		); err != nil {
			return nil, fmt.Errorf("物件データのスキャン失敗: %w", err)
		}
		if location.Valid {
			row.Location = []byte(location.String)
		}
		row.Status = model.PropertyStatusActive
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("物件データの読み込み失敗: %w", err)
	}

	return rowsToProperties(results), nil
}
