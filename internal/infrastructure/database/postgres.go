package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"

	"StayMap-App/internal/config"
	"StayMap-App/internal/infrastructure/logging"
)

// PostgreSQLClient PostgreSQL直接接続クライアント（PostGIS関数を使う物件取得用）
type PostgreSQLClient struct {
	DB *sql.DB
}

// BuildConnString SupabaseのプロジェクトURLから接続文字列を組み立てる
//
// https://xxx.supabase.co -> host=db.xxx.supabase.co（トランザクションプーラーのポート6543）
func BuildConnString(cfg config.SupabaseConfig) (string, error) {
	if cfg.URL == "" {
		return "", errors.New("SUPABASE_URL環境変数が設定されていません")
	}
	if cfg.DBPassword == "" {
		return "", errors.New("SUPABASE_DB_PASSWORD環境変数が設定されていません")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("SUPABASE_URLの形式が不正です: %s", cfg.URL)
	}
	return fmt.Sprintf(
		"host=db.%s port=6543 user=postgres password=%s dbname=postgres sslmode=require",
		u.Hostname(), cfg.DBPassword,
	), nil
}

// NewPostgreSQLClient 新しいPostgreSQLクライアントを作成
func NewPostgreSQLClient(ctx context.Context, cfg config.SupabaseConfig) (*PostgreSQLClient, error) {
	connStr, err := BuildConnString(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("PostgreSQL接続の初期化に失敗: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("PostgreSQLへの接続に失敗: %w", err)
	}

	return &PostgreSQLClient{DB: db}, nil
}

// NewPostgreSQLClientWithRetry 起動直後の一時的な接続失敗に備えて数回再試行する
func NewPostgreSQLClientWithRetry(ctx context.Context, cfg config.SupabaseConfig, attempts int) (*PostgreSQLClient, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		client, err := NewPostgreSQLClient(ctx, cfg)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logging.Warn().Err(err).Int("attempt", i).Msg("⚠️ PostgreSQL接続に失敗、再試行します")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i) * time.Second):
		}
	}
	return nil, fmt.Errorf("PostgreSQL接続の再試行上限に達しました: %w", lastErr)
}

// Close データベース接続を閉じる
func (pc *PostgreSQLClient) Close() error {
	if pc.DB != nil {
		return pc.DB.Close()
	}
	return nil
}

// HealthCheck データベース接続のヘルスチェック
func (pc *PostgreSQLClient) HealthCheck(ctx context.Context) error {
	if pc.DB == nil {
		return errors.New("PostgreSQLクライアントが初期化されていません")
	}
	return pc.DB.PingContext(ctx)
}
