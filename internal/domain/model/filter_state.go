package model

import (
	"fmt"
	"slices"
	"strings"
)

// FilterState ユーザーが選択したファセット条件
type FilterState struct {
	PriceMin    int      `json:"price_min" validate:"min=0"`
	PriceMax    *int     `json:"price_max,omitempty" validate:"omitempty,min=0"` // nilは上限なし
	Category    Category `json:"category"`                                       // 空は指定なし
	MinBedrooms int      `json:"min_bedrooms" validate:"min=0"`
	MinGuests   int      `json:"min_guests" validate:"min=0"`
	Amenities   []string `json:"amenities,omitempty"` // 空は全件一致
}

// DefaultFilterState デフォルト条件（すべて指定なし）
func DefaultFilterState() FilterState {
	return FilterState{}
}

// Validate 不変条件を検証
func (f FilterState) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	if f.PriceMax != nil && f.PriceMin > *f.PriceMax {
		return fmt.Errorf("%w: 最低価格(%d)が最高価格(%d)を超えています", ErrInvalidFilter, f.PriceMin, *f.PriceMax)
	}
	if f.Category != CategoryAny && !f.Category.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidFilter, ErrUnknownCategory)
	}
	return nil
}

// HasPriceMax 上限価格が設定されているか
func (f FilterState) HasPriceMax() bool {
	return f.PriceMax != nil
}

// WithPriceMax 上限価格を設定したコピーを返す
func (f FilterState) WithPriceMax(max int) FilterState {
	c := f.Clone()
	c.PriceMax = &max
	return c
}

// Clone スライスとポインタを複製したコピーを返す
func (f FilterState) Clone() FilterState {
	c := f
	if f.PriceMax != nil {
		max := *f.PriceMax
		c.PriceMax = &max
	}
	c.Amenities = slices.Clone(f.Amenities)
	return c
}

// NormalizedAmenities 小文字化・空白除去したアメニティ条件（空要素は除外）
func (f FilterState) NormalizedAmenities() []string {
	normalized := make([]string, 0, len(f.Amenities))
	for _, a := range f.Amenities {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			normalized = append(normalized, a)
		}
	}
	return normalized
}

// IsDefault デフォルト条件かどうか
func (f FilterState) IsDefault() bool {
	return f.PriceMin == 0 && f.PriceMax == nil && f.Category == CategoryAny &&
		f.MinBedrooms == 0 && f.MinGuests == 0 && len(f.NormalizedAmenities()) == 0
}
