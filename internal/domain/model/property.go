package model

import (
	"github.com/paulmach/orb"
)

// PlaceholderPhotoURL 写真が1枚もない物件に表示するプレースホルダー画像
const PlaceholderPhotoURL = "/static/img/listing-placeholder.svg"

// PropertyStatusActive 掲載中ステータス
const PropertyStatusActive = "active"

// LatLng 緯度経度を表す基本的な型
type LatLng struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

// Valid 緯度経度が有効範囲内かチェック
func (l LatLng) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// ToPoint orb.Point（[lng, lat]）に変換
func (l LatLng) ToPoint() orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

// LatLngFromPoint orb.Point から LatLng に変換
func LatLngFromPoint(p orb.Point) LatLng {
	return LatLng{Lat: p.Lat(), Lng: p.Lon()}
}

// Property 掲載物件のスナップショット（クライアント側では変更しない）
type Property struct {
	ID            string   `json:"id" db:"id" validate:"required"`
	Title         string   `json:"title" db:"title"`
	PricePerNight int      `json:"price_per_night" db:"price_per_night" validate:"min=0"`
	Location      *LatLng  `json:"location" db:"location"` // 座標が欠損しているレコードはnil
	Category      Category `json:"category" db:"category"`
	Address       string   `json:"address" db:"address"`
	Bedrooms      int      `json:"bedrooms" db:"bedrooms" validate:"min=0"`
	Beds          int      `json:"beds" db:"beds" validate:"min=0"`
	Bathrooms     int      `json:"bathrooms" db:"bathrooms" validate:"min=0"`
	Guests        int      `json:"guests" db:"guests" validate:"min=0"`
	Photos        []string `json:"photos" db:"photos"`
	Amenities     []string `json:"amenities" db:"amenities"`
}

// HasLocation 有効な座標を持っているかチェック
func (p *Property) HasLocation() bool {
	return p.Location != nil && p.Location.Valid()
}

// CoverPhoto 先頭の写真を返す。写真がなければプレースホルダー
func (p *Property) CoverPhoto() string {
	for _, photo := range p.Photos {
		if photo != "" {
			return photo
		}
	}
	return PlaceholderPhotoURL
}

// Validate 物件スナップショットの不変条件を検証
func (p *Property) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if p.Location != nil && !p.Location.Valid() {
		return ErrInvalidCoordinate
	}
	if !p.Category.Valid() {
		return ErrUnknownCategory
	}
	return nil
}
