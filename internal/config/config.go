package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config アプリケーション設定
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Supabase  SupabaseConfig  `koanf:"supabase"`
	Firestore FirestoreConfig `koanf:"firestore"`
	Redis     RedisConfig     `koanf:"redis"`
	Maps      MapsConfig      `koanf:"maps"`
}

type ServerConfig struct {
	Port     string `koanf:"port"`
	LoginURL string `koanf:"login_url"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type SupabaseConfig struct {
	URL        string `koanf:"url"`
	AnonKey    string `koanf:"anon_key"`
	DBPassword string `koanf:"db_password"`
	// UsePostgres trueの場合は物件取得をPostgreSQL直接接続で行う
	UsePostgres bool `koanf:"use_postgres"`
}

type FirestoreConfig struct {
	ProjectID string `koanf:"project_id"`
}

type RedisConfig struct {
	Addr string `koanf:"addr"`
	DB   int    `koanf:"db"`
}

type MapsConfig struct {
	APIKey           string        `koanf:"api_key"`
	Country          string        `koanf:"country"`
	RequestsPerSec   float64       `koanf:"requests_per_sec"`
	Burst            int           `koanf:"burst"`
	PredictionTTL    time.Duration `koanf:"prediction_ttl"`
	BreakerThreshold uint32        `koanf:"breaker_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{Port: "8080", LoginURL: "/login"},
		Log:    LogConfig{Level: "info", Format: "json"},
		Maps: MapsConfig{
			RequestsPerSec:   10,
			Burst:            5,
			PredictionTTL:    10 * time.Minute,
			BreakerThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
	}
}

// 環境変数名 -> koanfキー
var envKeys = map[string]string{
	"PORT":                    "server.port",
	"LOGIN_URL":               "server.login_url",
	"LOG_LEVEL":               "log.level",
	"LOG_FORMAT":              "log.format",
	"SUPABASE_URL":            "supabase.url",
	"SUPABASE_ANON_KEY":       "supabase.anon_key",
	"SUPABASE_DB_PASSWORD":    "supabase.db_password",
	"USE_POSTGRES":            "supabase.use_postgres",
	"FIRESTORE_PROJECT_ID":    "firestore.project_id",
	"REDIS_ADDR":              "redis.addr",
	"REDIS_DB":                "redis.db",
	"GOOGLE_MAPS_API_KEY":     "maps.api_key",
	"PLACES_COUNTRY":          "maps.country",
	"PLACES_REQUESTS_PER_SEC": "maps.requests_per_sec",
	"PLACES_BURST":            "maps.burst",
	"PLACES_PREDICTION_TTL":   "maps.prediction_ttl",
	"PLACES_BREAKER_FAILURES": "maps.breaker_threshold",
	"PLACES_BREAKER_TIMEOUT":  "maps.breaker_timeout",
}

// Load .envを読み込み、デフォルト値 -> 環境変数の順に設定を構築する
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf(".envファイルの読み込みに失敗: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("デフォルト設定の読み込みに失敗: %w", err)
	}

	envProvider := env.Provider("", ".", func(s string) string {
		return envKeys[strings.ToUpper(s)]
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("設定のアンマーシャルに失敗: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}
	return cfg, nil
}

// Validate 必須項目と値の範囲を検証
func (c *Config) Validate() error {
	var missing []string
	if c.Supabase.URL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if c.Supabase.AnonKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	if c.Supabase.UsePostgres && c.Supabase.DBPassword == "" {
		missing = append(missing, "SUPABASE_DB_PASSWORD")
	}
	if c.Maps.APIKey == "" {
		missing = append(missing, "GOOGLE_MAPS_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("必要な環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}

	if c.Maps.RequestsPerSec <= 0 {
		return fmt.Errorf("PLACES_REQUESTS_PER_SEC は正の値である必要があります")
	}
	if c.Maps.Burst < 1 {
		return fmt.Errorf("PLACES_BURST は1以上である必要があります")
	}
	if c.Maps.BreakerThreshold < 1 {
		return fmt.Errorf("PLACES_BREAKER_FAILURES は1以上である必要があります")
	}
	return nil
}
