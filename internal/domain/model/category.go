package model

import (
	"fmt"
	"strings"
)

// Category 物件カテゴリ（固定の列挙型）
type Category string

// 空文字は「指定なし」を表し、フィルター条件でのみ使用する
const (
	CategoryAny         Category = ""
	CategoryApartment   Category = "apartment"
	CategoryHouse       Category = "house"
	CategoryVilla       Category = "villa"
	CategoryLoft        Category = "loft"
	CategoryCabin       Category = "cabin"
	CategoryCottage     Category = "cottage"
	CategoryBeachfront  Category = "beachfront"
	CategoryCountryside Category = "countryside"
)

// AllCategories 全カテゴリ一覧（表示順）
func AllCategories() []Category {
	return []Category{
		CategoryApartment,
		CategoryHouse,
		CategoryVilla,
		CategoryLoft,
		CategoryCabin,
		CategoryCottage,
		CategoryBeachfront,
		CategoryCountryside,
	}
}

// ParseCategory 文字列からカテゴリに変換（大文字小文字は区別しない）
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == CategoryAny || c.Valid() {
		return c, nil
	}
	return CategoryAny, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Valid 列挙値のいずれかであればtrue（CategoryAnyはfalse）
func (c Category) Valid() bool {
	switch c {
	case CategoryApartment, CategoryHouse, CategoryVilla, CategoryLoft,
		CategoryCabin, CategoryCottage, CategoryBeachfront, CategoryCountryside:
		return true
	}
	return false
}

// Label 表示用ラベル
func (c Category) Label() string {
	switch c {
	case CategoryAny:
		return "All stays"
	case CategoryApartment:
		return "Apartment"
	case CategoryHouse:
		return "House"
	case CategoryVilla:
		return "Villa"
	case CategoryLoft:
		return "Loft"
	case CategoryCabin:
		return "Cabin"
	case CategoryCottage:
		return "Cottage"
	case CategoryBeachfront:
		return "Beachfront"
	case CategoryCountryside:
		return "Countryside"
	}
	panic(fmt.Sprintf("model: Label に未対応のカテゴリ %q", string(c)))
}

// Icon アイコン名
func (c Category) Icon() string {
	switch c {
	case CategoryAny:
		return "grid"
	case CategoryApartment:
		return "building"
	case CategoryHouse:
		return "home"
	case CategoryVilla:
		return "castle"
	case CategoryLoft:
		return "warehouse"
	case CategoryCabin:
		return "tree-pine"
	case CategoryCottage:
		return "chimney"
	case CategoryBeachfront:
		return "umbrella-beach"
	case CategoryCountryside:
		return "tractor"
	}
	panic(fmt.Sprintf("model: Icon に未対応のカテゴリ %q", string(c)))
}

// UnmarshalText 未知のカテゴリはエラーにする
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// CategoryInfo カテゴリ一覧API用の表示情報
type CategoryInfo struct {
	ID    Category `json:"id"`
	Label string   `json:"label"`
	Icon  string   `json:"icon"`
}

// CategoryInfos 全カテゴリの表示情報
func CategoryInfos() []CategoryInfo {
	categories := AllCategories()
	infos := make([]CategoryInfo, 0, len(categories))
	for _, c := range categories {
		infos = append(infos, CategoryInfo{ID: c, Label: c.Label(), Icon: c.Icon()})
	}
	return infos
}
