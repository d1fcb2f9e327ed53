package model

// Prediction 住所・都市名オートコンプリートの候補
type Prediction struct {
	ID            string `json:"id"`
	Description   string `json:"description"`
	MainText      string `json:"main_text,omitempty"`
	SecondaryText string `json:"secondary_text,omitempty"`
}

// PlaceDetails 候補から解決した正確な位置
type PlaceDetails struct {
	ID    string  `json:"id"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
}

// ToLatLng 位置情報をLatLng型に変換
func (d *PlaceDetails) ToLatLng() LatLng {
	return LatLng{Lat: d.Lat, Lng: d.Lng}
}
