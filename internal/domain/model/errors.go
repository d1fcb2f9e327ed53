package model

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidCoordinate = errors.New("座標が有効範囲外です")
	ErrInvalidBounds     = errors.New("境界ボックスが不正です")
	ErrInvalidFilter     = errors.New("フィルター条件が不正です")
	ErrUnknownCategory   = errors.New("未知のカテゴリです")
	ErrInvalidViewMode   = errors.New("未知の表示モードです")
	ErrNotAuthenticated  = errors.New("ログインが必要です")
	ErrSnapshotNotLoaded = errors.New("物件スナップショットが未ロードです")
	ErrNotFound          = errors.New("データが見つかりません")
)

var validate = validator.New(validator.WithRequiredStructEnabled())
