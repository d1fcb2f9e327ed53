package model

import "fmt"

// ViewMode 検索結果の表示モード
type ViewMode string

const (
	ViewModeMap  ViewMode = "map"
	ViewModeList ViewMode = "list"
)

// DefaultViewMode 未設定時の表示モード
const DefaultViewMode = ViewModeMap

// ParseViewMode 文字列から表示モードに変換
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(s); m {
	case ViewModeMap, ViewModeList:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidViewMode, s)
}
