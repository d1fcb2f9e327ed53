package repository

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/geojson"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/infrastructure/logging"
)

// propertiesTable 物件テーブル
const propertiesTable = "properties"

// PropertyRow propertiesテーブルの1行（locationはEWKB16進文字列またはGeoJSON）
type PropertyRow struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	PricePerNight int             `json:"price_per_night"`
	Location      json.RawMessage `json:"location"`
	Category      string          `json:"category"`
	Address       string          `json:"address"`
	Bedrooms      int             `json:"bedrooms"`
	Beds          int             `json:"beds"`
	Bathrooms     int             `json:"bathrooms"`
	Guests        int             `json:"guests"`
	Photos        []string        `json:"photos"`
	Amenities     []string        `json:"amenities"`
	Status        string          `json:"status"`
}

// ParseLocation location列を LatLng に変換
//
// PostgRESTはPostGISの列をEWKBの16進文字列で、ST_AsGeoJSONはGeoJSONで返すため両方を受け付ける。
// nullは nil を返す（座標欠損として扱う）。Point以外・範囲外の座標はエラー。
func ParseLocation(raw []byte) (*model.LatLng, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var geometry orb.Geometry
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, fmt.Errorf("location文字列のパースエラー: %w", err)
		}
		decoded, err := hex.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("location EWKBのデコードエラー: %w", err)
		}
		geometry, _, err = ewkb.Unmarshal(decoded)
		if err != nil {
			return nil, fmt.Errorf("location EWKBパースエラー: %w", err)
		}
	} else {
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("location GeoJSONパースエラー: %w", err)
		}
		geometry = g.Geometry()
	}

	point, ok := geometry.(orb.Point)
	if !ok {
		return nil, fmt.Errorf("locationがPointではありません: %s", geometry.GeoJSONType())
	}

	ll := model.LatLngFromPoint(point)
	if !ll.Valid() {
		return nil, fmt.Errorf("%w: (%f, %f)", model.ErrInvalidCoordinate, ll.Lat, ll.Lng)
	}
	return &ll, nil
}

// LatLngToGeoJSON LatLng を GeoJSON Point に変換
func LatLngToGeoJSON(ll model.LatLng) ([]byte, error) {
	return geojson.NewGeometry(ll.ToPoint()).MarshalJSON()
}

// ToProperty 行をドメインモデルに変換する
//
// 座標の欠損・破損はエラーにせず Location を nil にする。未知のカテゴリはエラー。
func (r *PropertyRow) ToProperty() (model.Property, error) {
	category, err := model.ParseCategory(r.Category)
	if err != nil || category == model.CategoryAny {
		return model.Property{}, fmt.Errorf("物件 %s: %w", r.ID, model.ErrUnknownCategory)
	}

	location, err := ParseLocation(r.Location)
	if err != nil {
		logging.Warn().Err(err).Str("property_id", r.ID).Msg("⚠️ 座標が不正なため位置なしとして扱います")
		location = nil
	}

	return model.Property{
		ID:            r.ID,
		Title:         r.Title,
		PricePerNight: r.PricePerNight,
		Location:      location,
		Category:      category,
		Address:       r.Address,
		Bedrooms:      r.Bedrooms,
		Beds:          r.Beds,
		Bathrooms:     r.Bathrooms,
		Guests:        r.Guests,
		Photos:        r.Photos,
		Amenities:     r.Amenities,
	}, nil
}

// rowsToProperties 変換できない行は警告を出してスキップする
func rowsToProperties(rows []PropertyRow) []model.Property {
	properties := make([]model.Property, 0, len(rows))
	for i := range rows {
		p, err := rows[i].ToProperty()
		if err != nil {
			logging.Warn().Err(err).Msg("⚠️ 物件をスキップしました")
			continue
		}
		properties = append(properties, p)
	}
	return properties
}
