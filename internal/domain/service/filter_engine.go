package service

import (
	"strconv"
	"strings"

	"StayMap-App/internal/domain/model"
)

// VisibleSetSummaryLimit これを超える件数は「100+」と要約する
const VisibleSetSummaryLimit = 100

// FilterStage 述語チェーンの各段階（評価順）
type FilterStage int

const (
	StageBounds FilterStage = iota
	StagePrice
	StageCategory
	StageBedrooms
	StageGuests
	StageAmenities
)

func (s FilterStage) String() string {
	switch s {
	case StageBounds:
		return "bounds"
	case StagePrice:
		return "price"
	case StageCategory:
		return "category"
	case StageBedrooms:
		return "bedrooms"
	case StageGuests:
		return "guests"
	case StageAmenities:
		return "amenities"
	}
	return "unknown"
}

// Diagnosis 0件になった理由を説明するための段階別の除外件数
type Diagnosis struct {
	Total    int            `json:"total"`
	Visible  int            `json:"visible"`
	Rejected map[string]int `json:"rejected"`
}

// DeriveVisibleSet bounds ∧ FilterState を満たす物件をスナップショット順のまま返す
//
// 副作用のない純粋関数で、同じ入力に対しては常に同じ順序・同じ要素を返す。
// boundsがnilの場合は空間条件をスキップする（ロード済み全件が対象）。
func DeriveVisibleSet(snapshot []model.Property, bounds *model.Bounds, filter model.FilterState) []model.Property {
	amenities := filter.NormalizedAmenities()
	visible := make([]model.Property, 0, len(snapshot))
	for i := range snapshot {
		if _, rejected := rejectStage(&snapshot[i], bounds, &filter, amenities); rejected {
			continue
		}
		visible = append(visible, snapshot[i])
	}
	return visible
}

// Diagnose DeriveVisibleSet と同じ順序で評価し、最初に除外した段階ごとに集計する
func Diagnose(snapshot []model.Property, bounds *model.Bounds, filter model.FilterState) Diagnosis {
	amenities := filter.NormalizedAmenities()
	d := Diagnosis{Total: len(snapshot), Rejected: map[string]int{}}
	for i := range snapshot {
		stage, rejected := rejectStage(&snapshot[i], bounds, &filter, amenities)
		if rejected {
			d.Rejected[stage.String()]++
			continue
		}
		d.Visible++
	}
	return d
}

// rejectStage 述語を固定順で評価し、最初に不一致となった段階を返す
func rejectStage(p *model.Property, bounds *model.Bounds, f *model.FilterState, amenities []string) (FilterStage, bool) {
	// 1. 空間条件（座標欠損レコードはここで除外）
	if bounds != nil {
		if !p.HasLocation() || !bounds.Contains(*p.Location) {
			return StageBounds, true
		}
	}
	// 2. 価格帯
	if p.PricePerNight < f.PriceMin || (f.PriceMax != nil && p.PricePerNight > *f.PriceMax) {
		return StagePrice, true
	}
	// 3. カテゴリ
	if f.Category != model.CategoryAny && p.Category != f.Category {
		return StageCategory, true
	}
	// 4. 寝室数
	if p.Bedrooms < f.MinBedrooms {
		return StageBedrooms, true
	}
	// 5. 定員
	if p.Guests < f.MinGuests {
		return StageGuests, true
	}
	// 6. アメニティ
	if !coversAmenities(p.Amenities, amenities) {
		return StageAmenities, true
	}
	return 0, false
}

// coversAmenities 必須アメニティのそれぞれが、物件のいずれかのタグに部分一致するか（大文字小文字無視）
func coversAmenities(tags []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	lowered := make([]string, len(tags))
	for i, tag := range tags {
		lowered[i] = strings.ToLower(tag)
	}
	for _, want := range required {
		found := false
		for _, tag := range lowered {
			if strings.Contains(tag, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SummarizeCount 件数表示用。100件を超える場合は網羅的な件数を示さない
func SummarizeCount(n int) string {
	if n > VisibleSetSummaryLimit {
		return strconv.Itoa(VisibleSetSummaryLimit) + "+"
	}
	return strconv.Itoa(n)
}
