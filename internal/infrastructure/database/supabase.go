package database

import (
	"errors"
	"fmt"

	"github.com/supabase-community/supabase-go"

	"StayMap-App/internal/config"
	"StayMap-App/internal/infrastructure/logging"
)

// SupabaseClient Supabaseクライアントのラッパー
type SupabaseClient struct {
	Client *supabase.Client
	url    string
}

// NewSupabaseClient 設定から新しいSupabaseクライアントを作成
func NewSupabaseClient(cfg config.SupabaseConfig) (*SupabaseClient, error) {
	if cfg.URL == "" {
		return nil, errors.New("SUPABASE_URL環境変数が設定されていません")
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("SUPABASE_ANON_KEY環境変数が設定されていません")
	}

	client, err := supabase.NewClient(cfg.URL, cfg.AnonKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("Supabaseクライアントの初期化に失敗: %w", err)
	}

	return &SupabaseClient{Client: client, url: cfg.URL}, nil
}

// GetClient Supabaseクライアントを取得
func (sc *SupabaseClient) GetClient() *supabase.Client {
	return sc.Client
}

// HealthCheck クライアントの初期化状態を確認
func (sc *SupabaseClient) HealthCheck() error {
	if sc.Client == nil {
		return errors.New("Supabaseクライアントが初期化されていません")
	}
	logging.Debug().Str("url", sc.url).Msg("Supabaseクライアント初期化済み")
	return nil
}
