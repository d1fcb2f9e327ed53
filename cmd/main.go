package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"StayMap-App/internal/config"
	domainrepo "StayMap-App/internal/domain/repository"
	"StayMap-App/internal/handler"
	"StayMap-App/internal/infrastructure/cache"
	"StayMap-App/internal/infrastructure/database"
	"StayMap-App/internal/infrastructure/firestore"
	"StayMap-App/internal/infrastructure/logging"
	"StayMap-App/internal/infrastructure/maps"
	"StayMap-App/internal/repository"
	"StayMap-App/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("❌ 設定の読み込みに失敗")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	gin.SetMode(gin.ReleaseMode)

	ctx := context.Background()

	logging.Info().Msg("Supabaseクライアントを初期化しています...")
	supabaseClient, err := database.NewSupabaseClient(cfg.Supabase)
	if err != nil {
		logging.Fatal().Err(err).Msg("❌ Supabaseクライアント初期化失敗")
	}
	if err := supabaseClient.HealthCheck(); err != nil {
		logging.Fatal().Err(err).Msg("❌ Supabaseヘルスチェック失敗")
	}
	logging.Info().Msg("✅ Supabase connection successful!")

	// 物件一覧の取得先
	var propertiesRepo domainrepo.PropertiesRepository
	if cfg.Supabase.UsePostgres {
		pgClient, err := database.NewPostgreSQLClientWithRetry(ctx, cfg.Supabase, 3)
		if err != nil {
			logging.Fatal().Err(err).Msg("❌ PostgreSQL接続失敗")
		}
		defer pgClient.Close()
		propertiesRepo = repository.NewPostgresPropertiesRepository(pgClient)
	} else {
		propertiesRepo = repository.NewSupabasePropertiesRepository(supabaseClient)
	}
	wishlistRepo := repository.NewSupabaseWishlistRepository(supabaseClient)

	// 表示モードはFirestoreに保存する。未設定ならプロセス内のみで保持
	var preferenceRepo domainrepo.PreferenceRepository
	if cfg.Firestore.ProjectID != "" {
		firestoreClient, err := firestore.NewFirestoreClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			logging.Fatal().Err(err).Msg("❌ Firestoreクライアント初期化失敗")
		}
		defer firestoreClient.Close()
		preferenceRepo = repository.NewFirestorePreferenceRepository(firestoreClient.GetClient())
	} else {
		logging.Warn().Msg("⚠️ FIRESTORE_PROJECT_ID が未設定のため表示モードは永続化されません")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		// 候補キャッシュがなくても検索は動くので起動は続ける
		logging.Warn().Err(err).Msg("⚠️ Redisに接続できません。候補キャッシュなしで起動します")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	placesProvider := maps.NewCachedPlacesProvider(
		maps.NewGooglePlacesProvider(cfg.Maps.APIKey, maps.BreakerSettings{
			FailureThreshold: cfg.Maps.BreakerThreshold,
			Timeout:          cfg.Maps.BreakerTimeout,
		}),
		repository.NewRedisPredictionCache(redisClient),
		cfg.Maps.PredictionTTL,
	)

	discoveryUseCase := usecase.NewDiscoveryUseCase(
		propertiesRepo,
		wishlistRepo,
		placesProvider,
		usecase.NewViewModeSettings(preferenceRepo),
		usecase.DiscoveryOptions{
			Country: cfg.Maps.Country,
			Limiter: rate.NewLimiter(rate.Limit(cfg.Maps.RequestsPerSec), cfg.Maps.Burst),
		},
	)

	// 起動時にスナップショットを読み込んでおく。失敗しても /api/properties/retry で再試行できる
	if err := discoveryUseCase.Warm(ctx); err != nil {
		logging.Warn().Err(err).Msg("⚠️ 物件スナップショットの事前ロードに失敗")
	} else {
		logging.Info().Msg("✅ 物件スナップショットをロードしました")
	}

	router := handler.NewRouter(handler.NewDiscoveryHandler(discoveryUseCase, cfg.Server.LoginURL))
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.Server.Port).Msg("StayMap-App server starting...")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("❌ サーバーの起動に失敗")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("サーバーを停止しています...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("❌ サーバーの停止に失敗")
	}
}
