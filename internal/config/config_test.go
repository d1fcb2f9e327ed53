package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("GOOGLE_MAPS_API_KEY", "maps-key")
}

func TestLoad(t *testing.T) {
	t.Run("環境変数で上書きされる", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("PORT", "9090")
		t.Setenv("PLACES_COUNTRY", "it")
		t.Setenv("PLACES_PREDICTION_TTL", "30s")
		t.Setenv("REDIS_DB", "2")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, "it", cfg.Maps.Country)
		assert.Equal(t, 30*time.Second, cfg.Maps.PredictionTTL)
		assert.Equal(t, 2, cfg.Redis.DB)
	})

	t.Run("未指定の項目はデフォルト値", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "/login", cfg.Server.LoginURL)
		assert.Equal(t, float64(10), cfg.Maps.RequestsPerSec)
		assert.Equal(t, uint32(5), cfg.Maps.BreakerThreshold)
		assert.False(t, cfg.Supabase.UsePostgres)
	})

	t.Run("必須項目が欠けているとエラー", func(t *testing.T) {
		t.Setenv("SUPABASE_URL", "")
		t.Setenv("SUPABASE_ANON_KEY", "")
		t.Setenv("GOOGLE_MAPS_API_KEY", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SUPABASE_URL")
		assert.Contains(t, err.Error(), "GOOGLE_MAPS_API_KEY")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Supabase.URL = "https://example.supabase.co"
		cfg.Supabase.AnonKey = "anon"
		cfg.Maps.APIKey = "maps-key"
		return &cfg
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Supabase.UsePostgres = true
	assert.ErrorContains(t, cfg.Validate(), "SUPABASE_DB_PASSWORD")

	cfg = valid()
	cfg.Maps.RequestsPerSec = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Maps.Burst = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Maps.BreakerThreshold = 0
	assert.Error(t, cfg.Validate())
}
