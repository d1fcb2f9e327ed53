package usecase

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/domain/repository"
	"StayMap-App/internal/domain/service"
	"StayMap-App/internal/infrastructure/logging"
	"StayMap-App/internal/infrastructure/metrics"
)

// ResultsStatus 件数ラベルの状態
type ResultsStatus int

const (
	StatusLoading ResultsStatus = iota
	StatusLoadFailed
	StatusAwaitingBounds
	StatusEmpty
	StatusResults
)

// SessionDeps DiscoverySession の協調オブジェクト
type SessionDeps struct {
	Properties repository.PropertiesRepository
	Wishlist   repository.WishlistRepository
	Session    repository.SessionProvider
	Places     repository.PlacesProvider

	Surface    service.MapSurface
	Overlays   service.OverlayProvider
	Preview    service.PreviewPanel
	Navigator  service.Navigator
	Redirector service.LoginRedirector

	Scheduler service.Scheduler
	Limiter   *rate.Limiter

	SettleDelay    time.Duration
	LookupDebounce time.Duration
	Country        string

	// OnVisibleChange 表示対象セットが再計算されるたびに呼ばれる（一覧カード描画用）
	OnVisibleChange func([]model.Property)
}

// DiscoverySession 地図ビューポート・ファセット条件・マーカー表示を同期させる探索エンジン
type DiscoverySession struct {
	cache     *service.SnapshotCache
	tracker   *service.BoundsTracker
	markers   *service.MarkerController
	wishlist  *service.WishlistSync
	places    *service.PlaceLookup
	navigator service.Navigator

	onVisibleChange func([]model.Property)

	// recomputeMu 導出・マーカー反映・コールバックを一続きにする
	recomputeMu sync.Mutex

	mu      sync.RWMutex
	filter  model.FilterState
	bounds  *model.Bounds
	visible []model.Property
}

// NewDiscoverySession 新しいDiscoverySessionを作成
func NewDiscoverySession(deps SessionDeps) *DiscoverySession {
	s := &DiscoverySession{
		cache:           service.NewSnapshotCache(deps.Properties, deps.Wishlist, deps.Session),
		markers:         service.NewMarkerController(deps.Overlays, deps.Preview, deps.Navigator),
		wishlist:        service.NewWishlistSync(deps.Wishlist, deps.Session, deps.Redirector),
		navigator:       deps.Navigator,
		onVisibleChange: deps.OnVisibleChange,
		filter:          model.DefaultFilterState(),
	}
	s.tracker = service.NewBoundsTracker(deps.Surface, deps.SettleDelay, deps.Scheduler, s.onBoundsSettled)
	s.places = service.NewPlaceLookup(deps.Places, deps.Surface, service.PlaceLookupOptions{
		Country:   deps.Country,
		Debounce:  deps.LookupDebounce,
		Scheduler: deps.Scheduler,
		Limiter:   deps.Limiter,
		OnPan: func(service.PanTarget) {
			// パン後のカメラ変更も通常の静止判定を通す
			s.tracker.Notify()
		},
	})
	return s
}

// Mount スナップショットをロードし、最初のビューポート発行を開始する
//
// ロード失敗時もセッションは利用可能で、ResultsStatus が StatusLoadFailed になる。
func (s *DiscoverySession) Mount(ctx context.Context) error {
	err := s.cache.Load(ctx)
	if err == nil {
		s.wishlist.Seed(s.cache.Membership())
	}
	s.tracker.Start()
	s.recompute("snapshot")
	return err
}

// Retry 失敗したロードを再試行する
func (s *DiscoverySession) Retry(ctx context.Context) error {
	if err := s.cache.Retry(ctx); err != nil {
		return err
	}
	s.wishlist.Seed(s.cache.Membership())
	s.recompute("snapshot")
	return nil
}

// Unmount タイマーと地図オーバーレイを破棄する。遅延応答は以後すべて無視される
func (s *DiscoverySession) Unmount() {
	s.tracker.Stop()
	s.places.Close()
	s.markers.Close()
}

// CameraChanged 地図のカメラ変更通知
func (s *DiscoverySession) CameraChanged() {
	s.tracker.Notify()
}

// SurfaceReady 地図の初期化完了通知
func (s *DiscoverySession) SurfaceReady() {
	s.tracker.SurfaceReady()
}

// OverlaysReady オーバーレイライブラリの初期化完了通知
func (s *DiscoverySession) OverlaysReady() {
	s.markers.ProviderReady()
}

func (s *DiscoverySession) onBoundsSettled(b model.Bounds) {
	s.mu.Lock()
	s.bounds = &b
	s.mu.Unlock()
	s.recompute("bounds")
}

// recompute 現在の入力から表示対象セットを同期的に再計算し、マーカーへ反映する
func (s *DiscoverySession) recompute(trigger string) {
	s.recomputeMu.Lock()
	defer s.recomputeMu.Unlock()

	snapshot := s.cache.Snapshot()

	s.mu.Lock()
	visible := service.DeriveVisibleSet(snapshot, s.bounds, s.filter)
	s.visible = visible
	s.mu.Unlock()

	metrics.VisibleSetRecomputes.WithLabelValues(trigger).Inc()
	metrics.VisibleSetSize.Observe(float64(len(visible)))

	result := s.markers.Sync(visible)
	logging.Debug().Str("trigger", trigger).Int("visible", len(visible)).
		Int("added", len(result.Added)).Int("removed", len(result.Removed)).Msg("表示対象セットを再計算")

	if s.onVisibleChange != nil {
		s.onVisibleChange(visible)
	}
}

// EditFilters 現在の条件を複製した下書きを返す。Apply するまで表示には影響しない
func (s *DiscoverySession) EditFilters() *FilterDraft {
	return &FilterDraft{session: s, draft: s.FilterState()}
}

// ApplyFilters 条件を確定して再計算する
func (s *DiscoverySession) ApplyFilters(f model.FilterState) error {
	if err := f.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.filter = f.Clone()
	s.mu.Unlock()
	s.recompute("filters")
	return nil
}

// ClearFilters 条件をデフォルトに戻す
func (s *DiscoverySession) ClearFilters() {
	s.mu.Lock()
	s.filter = model.DefaultFilterState()
	s.mu.Unlock()
	s.recompute("filters")
}

// VisibleSet 現在の表示対象セット
func (s *DiscoverySession) VisibleSet() []model.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible
}

// Bounds 現在の境界（未確定ならnil）
func (s *DiscoverySession) Bounds() *model.Bounds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.bounds == nil {
		return nil
	}
	b := *s.bounds
	return &b
}

// FilterState 現在の確定済み条件
func (s *DiscoverySession) FilterState() model.FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter.Clone()
}

// Status 件数ラベルの状態
func (s *DiscoverySession) Status() ResultsStatus {
	switch s.cache.State() {
	case service.LoadStateIdle, service.LoadStateLoading:
		return StatusLoading
	case service.LoadStateFailed:
		return StatusLoadFailed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.bounds == nil {
		return StatusAwaitingBounds
	}
	if len(s.visible) == 0 {
		return StatusEmpty
	}
	return StatusResults
}

// ResultsLabel 件数ラベル
func (s *DiscoverySession) ResultsLabel() string {
	switch s.Status() {
	case StatusLoading:
		return "loading"
	case StatusLoadFailed:
		return "load failed"
	case StatusAwaitingBounds:
		return "bounds pending"
	}
	return service.SummarizeCount(len(s.VisibleSet()))
}

// ToggleFavorite お気に入りを切り替える（未ログインならログインへ誘導）
func (s *DiscoverySession) ToggleFavorite(ctx context.Context, propertyID string) (bool, error) {
	return s.wishlist.Toggle(ctx, propertyID)
}

// IsFavorite お気に入りかどうか（楽観的状態）
func (s *DiscoverySession) IsFavorite(propertyID string) bool {
	return s.wishlist.IsFavorite(propertyID)
}

// Wishlist お気に入り同期コンポーネント
func (s *DiscoverySession) Wishlist() *service.WishlistSync {
	return s.wishlist
}

// Markers マーカーコントローラー（ポインタイベントの入力先）
func (s *DiscoverySession) Markers() *service.MarkerController {
	return s.markers
}

// Places 住所検索コンポーネント
func (s *DiscoverySession) Places() *service.PlaceLookup {
	return s.places
}

// NavigateToProperty 物件詳細へ遷移する
func (s *DiscoverySession) NavigateToProperty(id string) {
	s.navigator.NavigateToProperty(id)
}

// FilterDraft フィルター編集中の下書き
type FilterDraft struct {
	session *DiscoverySession
	draft   model.FilterState
}

// State 下書きの内容
func (d *FilterDraft) State() model.FilterState {
	return d.draft.Clone()
}

// Update 下書きを変更する（表示には影響しない）
func (d *FilterDraft) Update(fn func(*model.FilterState)) {
	fn(&d.draft)
}

// Apply 下書きを確定する
func (d *FilterDraft) Apply() error {
	return d.session.ApplyFilters(d.draft)
}

// Clear 確定済み条件をデフォルトに戻し、下書きもリセットする
func (d *FilterDraft) Clear() {
	d.draft = model.DefaultFilterState()
	d.session.ClearFilters()
}
