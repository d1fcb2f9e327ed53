package service

import "StayMap-App/internal/domain/model"

// MapSurface 地図本体（BoundsTracker・MarkerController・PlaceLookupで共有するシングルトン）
type MapSurface interface {
	// Bounds 現在のカメラの矩形。地図が未初期化ならfalse
	Bounds() (model.Bounds, bool)
	// PanTo 指定座標へ即座に移動する（ユーザーのドラッグ以外で唯一の書き込み）
	PanTo(target model.LatLng)
}

// OverlayHandle 地図に取り付けたオーバーレイの識別子
type OverlayHandle string

// MarkerVariant マーカーの見た目
type MarkerVariant int

const (
	VariantIdle MarkerVariant = iota
	VariantHovered
)

// OverlayProvider 任意要素を座標に取り付けるオーバーレイライブラリ
type OverlayProvider interface {
	// Ready 非同期初期化が完了しているか
	Ready() bool
	Attach(p model.Property, zIndex int) (OverlayHandle, error)
	Detach(h OverlayHandle)
	SetVariant(h OverlayHandle, variant MarkerVariant)
	SetZIndex(h OverlayHandle, zIndex int)
}

// ScreenPoint ポインタの画面座標
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PreviewContent ホバー時のプレビューパネル（写真と価格）
type PreviewContent struct {
	PropertyID string `json:"property_id"`
	PhotoURL   string `json:"photo_url"`
	PriceLabel string `json:"price_label"`
}

// PreviewPanel ポインタ付近に浮かぶプレビューパネル
type PreviewPanel interface {
	Show(content PreviewContent, at ScreenPoint)
	Move(at ScreenPoint)
	Hide()
}

// Navigator 物件詳細画面への遷移
type Navigator interface {
	NavigateToProperty(id string)
}

// LoginRedirector ログイン画面への誘導
type LoginRedirector interface {
	RedirectToLogin()
}
