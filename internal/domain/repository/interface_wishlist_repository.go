package repository

import (
	"context"

	"StayMap-App/internal/domain/model"
)

type WishlistRepository interface {
	ListForUser(ctx context.Context, userID string) ([]string, error)
	Add(ctx context.Context, userID, propertyID string) error
	Remove(ctx context.Context, userID, propertyID string) error
}

// SessionProvider 現在のログインユーザーを同期的に返す（未ログインはnil）
type SessionProvider interface {
	CurrentUser() *model.User
}

// StaticSession 固定ユーザーを返すSessionProvider
type StaticSession struct {
	User *model.User
}

func (s StaticSession) CurrentUser() *model.User {
	return s.User
}
