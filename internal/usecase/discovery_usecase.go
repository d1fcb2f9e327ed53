package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/domain/repository"
	"StayMap-App/internal/domain/service"
	"StayMap-App/internal/infrastructure/logging"
	"StayMap-App/internal/infrastructure/metrics"
)

// VisibleResult 表示対象セットとその件数ラベル
type VisibleResult struct {
	Properties []model.Property  `json:"properties"`
	CountLabel string            `json:"count_label"`
	Diagnosis  service.Diagnosis `json:"diagnosis"`
}

// ToggleResult お気に入り切り替えの結果
type ToggleResult struct {
	PropertyID string `json:"property_id"`
	Favorited  bool   `json:"favorited"`
	State      string `json:"state"`
}

type DiscoveryUseCase interface {
	// Warm 物件スナップショットを事前にロードする
	Warm(ctx context.Context) error
	// Retry 失敗したスナップショットのロードを再試行する
	Retry(ctx context.Context) error
	// SnapshotState スナップショットのロード状態
	SnapshotState() service.LoadState
	// VisibleProperties 境界とフィルター条件から表示対象セットを導出する
	VisibleProperties(ctx context.Context, bounds *model.Bounds, filter model.FilterState) (*VisibleResult, error)
	// Categories カテゴリ一覧
	Categories() []model.CategoryInfo
	// ToggleWishlist お気に入りを切り替える。未ログインは model.ErrNotAuthenticated
	ToggleWishlist(ctx context.Context, user *model.User, propertyID string) (*ToggleResult, error)
	// Wishlist ユーザーのお気に入り物件ID
	Wishlist(ctx context.Context, user *model.User) ([]string, error)
	// Autocomplete 住所・都市名の候補
	Autocomplete(ctx context.Context, input, country string) ([]model.Prediction, error)
	// ResolvePlace 候補IDから座標を解決する
	ResolvePlace(ctx context.Context, placeID string) (*model.PlaceDetails, error)
	// GetViewMode 表示モードを取得する
	GetViewMode(ctx context.Context, userID string) model.ViewMode
	// SetViewMode 表示モードを保存する
	SetViewMode(ctx context.Context, userID string, mode model.ViewMode) error
}

// DefaultWishlistIdleTTL この期間アクセスのないユーザーのお気に入り同期は破棄する
const DefaultWishlistIdleTTL = 30 * time.Minute

// DiscoveryOptions DiscoveryUseCaseの設定
type DiscoveryOptions struct {
	Country string
	Limiter *rate.Limiter

	// WishlistIdleTTL 0ならDefaultWishlistIdleTTL
	WishlistIdleTTL time.Duration
	// Now 現在時刻（テスト用）
	Now func() time.Time
}

type userWishlist struct {
	sync     *service.WishlistSync
	lastUsed time.Time
}

// discoveryUseCaseImpl はDiscoveryUseCaseの実装
type discoveryUseCaseImpl struct {
	cache    *service.SnapshotCache
	wishlist repository.WishlistRepository
	places   repository.PlacesProvider
	settings *ViewModeSettings
	limiter  *rate.Limiter
	country  string

	idleTTL time.Duration
	now     func() time.Time
	seeds   singleflight.Group

	mu    sync.Mutex
	syncs map[string]*userWishlist
}

// NewDiscoveryUseCase は新しいDiscoveryUseCaseインスタンスを作成
func NewDiscoveryUseCase(
	properties repository.PropertiesRepository,
	wishlist repository.WishlistRepository,
	places repository.PlacesProvider,
	settings *ViewModeSettings,
	opts DiscoveryOptions,
) DiscoveryUseCase {
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if settings == nil {
		settings = NewViewModeSettings(nil)
	}
	if opts.WishlistIdleTTL <= 0 {
		opts.WishlistIdleTTL = DefaultWishlistIdleTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &discoveryUseCaseImpl{
		// 物件一覧は全ユーザー共通。お気に入りはユーザーごとに WishlistSync が持つ
		cache:    service.NewSnapshotCache(properties, nil, nil),
		wishlist: wishlist,
		places:   places,
		settings: settings,
		limiter:  opts.Limiter,
		country:  opts.Country,
		idleTTL:  opts.WishlistIdleTTL,
		now:      opts.Now,
		syncs:    make(map[string]*userWishlist),
	}
}

func (u *discoveryUseCaseImpl) Warm(ctx context.Context) error {
	return u.cache.Load(ctx)
}

func (u *discoveryUseCaseImpl) Retry(ctx context.Context) error {
	return u.cache.Retry(ctx)
}

func (u *discoveryUseCaseImpl) SnapshotState() service.LoadState {
	return u.cache.State()
}

func (u *discoveryUseCaseImpl) VisibleProperties(ctx context.Context, bounds *model.Bounds, filter model.FilterState) (*VisibleResult, error) {
	if bounds != nil {
		if err := bounds.Validate(); err != nil {
			return nil, err
		}
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if err := u.cache.Load(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSnapshotNotLoaded, err)
	}

	snapshot := u.cache.Snapshot()
	visible := service.DeriveVisibleSet(snapshot, bounds, filter)
	metrics.VisibleSetRecomputes.WithLabelValues("request").Inc()
	metrics.VisibleSetSize.Observe(float64(len(visible)))

	return &VisibleResult{
		Properties: visible,
		CountLabel: service.SummarizeCount(len(visible)),
		Diagnosis:  service.Diagnose(snapshot, bounds, filter),
	}, nil
}

func (u *discoveryUseCaseImpl) Categories() []model.CategoryInfo {
	return model.CategoryInfos()
}

// syncFor ユーザーごとのWishlistSyncを返す。初回はサーバーのお気に入りで初期化する
//
// 初期化の取得はロック外で行い、同じユーザーの同時アクセスは1回の取得にまとめる。
func (u *discoveryUseCaseImpl) syncFor(ctx context.Context, user *model.User) (*service.WishlistSync, error) {
	if s := u.lookupSync(user.ID); s != nil {
		return s, nil
	}

	shared := context.WithoutCancel(ctx)
	v, err, _ := u.seeds.Do(user.ID, func() (interface{}, error) {
		if s := u.lookupSync(user.ID); s != nil {
			return s, nil
		}
		members, err := u.wishlist.ListForUser(shared, user.ID)
		if err != nil {
			return nil, fmt.Errorf("お気に入りの取得に失敗: %w", err)
		}
		s := service.NewWishlistSync(u.wishlist, repository.StaticSession{User: user}, nil)
		s.Seed(members)

		u.mu.Lock()
		defer u.mu.Unlock()
		now := u.now()
		u.evictIdleLocked(now)
		u.syncs[user.ID] = &userWishlist{sync: s, lastUsed: now}
		logging.Debug().Str("user_id", user.ID).Int("favorites", len(members)).Msg("お気に入り同期を初期化")
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*service.WishlistSync), nil
}

func (u *discoveryUseCaseImpl) lookupSync(userID string) *service.WishlistSync {
	u.mu.Lock()
	defer u.mu.Unlock()
	e, ok := u.syncs[userID]
	if !ok {
		return nil
	}
	e.lastUsed = u.now()
	return e.sync
}

// evictIdleLocked 一定期間使われず、送信中のリクエストもない同期を破棄する
func (u *discoveryUseCaseImpl) evictIdleLocked(now time.Time) {
	for id, e := range u.syncs {
		if now.Sub(e.lastUsed) >= u.idleTTL && !e.sync.Busy() {
			delete(u.syncs, id)
		}
	}
}

func (u *discoveryUseCaseImpl) ToggleWishlist(ctx context.Context, user *model.User, propertyID string) (*ToggleResult, error) {
	if user == nil {
		return nil, model.ErrNotAuthenticated
	}
	if err := u.cache.Load(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSnapshotNotLoaded, err)
	}
	if _, ok := u.cache.Find(propertyID); !ok {
		return nil, fmt.Errorf("%w: property_id=%s", model.ErrNotFound, propertyID)
	}

	s, err := u.syncFor(ctx, user)
	if err != nil {
		return nil, err
	}
	favorited, err := s.Toggle(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{
		PropertyID: propertyID,
		Favorited:  favorited,
		State:      s.State(propertyID).String(),
	}, nil
}

func (u *discoveryUseCaseImpl) Wishlist(ctx context.Context, user *model.User) ([]string, error) {
	if user == nil {
		return nil, model.ErrNotAuthenticated
	}
	s, err := u.syncFor(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.Favorites(), nil
}

func (u *discoveryUseCaseImpl) Autocomplete(ctx context.Context, input, country string) ([]model.Prediction, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return []model.Prediction{}, nil
	}
	if country == "" {
		country = u.country
	}
	if err := u.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return u.places.Predict(ctx, input, country)
}

func (u *discoveryUseCaseImpl) ResolvePlace(ctx context.Context, placeID string) (*model.PlaceDetails, error) {
	if err := u.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	details, err := u.places.Resolve(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if !details.ToLatLng().Valid() {
		return nil, model.ErrInvalidCoordinate
	}
	return details, nil
}

func (u *discoveryUseCaseImpl) GetViewMode(ctx context.Context, userID string) model.ViewMode {
	return u.settings.Get(ctx, userID)
}

func (u *discoveryUseCaseImpl) SetViewMode(ctx context.Context, userID string, mode model.ViewMode) error {
	return u.settings.Set(ctx, userID, mode)
}
