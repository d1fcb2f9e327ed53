package model

import (
	"time"

	"github.com/google/uuid"
)

// User 認証済みユーザー
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// WishlistEntry ユーザーと物件のお気に入り関連（存在のみが意味を持つ）
type WishlistEntry struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	PropertyID string    `json:"property_id" db:"property_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// NewWishlistEntry 新しいお気に入りエントリを作成
func NewWishlistEntry(userID, propertyID string) *WishlistEntry {
	return &WishlistEntry{
		ID:         uuid.New().String(),
		UserID:     userID,
		PropertyID: propertyID,
		CreatedAt:  time.Now().UTC(),
	}
}
