package model

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Bounds 地図ビューポートを表す緯度経度の矩形
//
// West > East の場合は日付変更線をまたぐ矩形として扱い、
// 経度の判定を [West, 180] と [-180, East] の2区間に分割する。
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// NewBounds 値を検証して Bounds を作成
func NewBounds(north, south, east, west float64) (Bounds, error) {
	b := Bounds{North: north, South: south, East: east, West: west}
	if err := b.Validate(); err != nil {
		return Bounds{}, err
	}
	return b, nil
}

// Validate North >= South かつ各値が有効範囲内かチェック
func (b Bounds) Validate() error {
	if b.North < b.South {
		return fmt.Errorf("%w: north(%f) < south(%f)", ErrInvalidBounds, b.North, b.South)
	}
	if b.North > 90 || b.South < -90 {
		return fmt.Errorf("%w: 緯度は-90から90の範囲である必要があります", ErrInvalidBounds)
	}
	if b.East > 180 || b.East < -180 || b.West > 180 || b.West < -180 {
		return fmt.Errorf("%w: 経度は-180から180の範囲である必要があります", ErrInvalidBounds)
	}
	return nil
}

// WrapsAntimeridian 日付変更線をまたいでいるか
func (b Bounds) WrapsAntimeridian() bool {
	return b.West > b.East
}

// ToOrb orb.Bound に変換。日付変更線をまたぐ場合は2つに分割する
func (b Bounds) ToOrb() []orb.Bound {
	if !b.WrapsAntimeridian() {
		return []orb.Bound{{
			Min: orb.Point{b.West, b.South},
			Max: orb.Point{b.East, b.North},
		}}
	}
	return []orb.Bound{
		{Min: orb.Point{b.West, b.South}, Max: orb.Point{180, b.North}},
		{Min: orb.Point{-180, b.South}, Max: orb.Point{b.East, b.North}},
	}
}

// Contains 座標が矩形内（境界を含む）にあるか
func (b Bounds) Contains(ll LatLng) bool {
	point := ll.ToPoint()
	for _, bound := range b.ToOrb() {
		if bound.Contains(point) {
			return true
		}
	}
	return false
}

// BoundsFromOrb orb.Bound から Bounds に変換
func BoundsFromOrb(bound orb.Bound) Bounds {
	return Bounds{
		North: bound.Top(),
		South: bound.Bottom(),
		East:  bound.Right(),
		West:  bound.Left(),
	}
}
