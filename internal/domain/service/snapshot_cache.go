package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/domain/repository"
	"StayMap-App/internal/infrastructure/logging"
	"StayMap-App/internal/infrastructure/metrics"
)

// LoadState スナップショットのロード状態
type LoadState int

const (
	LoadStateIdle LoadState = iota
	LoadStateLoading
	LoadStateLoaded
	LoadStateFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadStateIdle:
		return "idle"
	case LoadStateLoading:
		return "loading"
	case LoadStateLoaded:
		return "loaded"
	case LoadStateFailed:
		return "failed"
	}
	return "unknown"
}

// SnapshotCache 掲載中物件と現在ユーザーのお気に入りを1回だけロードして保持する
//
// 利用側からは「ロード中」か「ロード完了」のどちらかしか見えず、部分的なスナップショットは公開しない。
// ロード失敗は空のスナップショットではなく LoadStateFailed として区別する。
type SnapshotCache struct {
	properties repository.PropertiesRepository
	wishlist   repository.WishlistRepository
	session    repository.SessionProvider
	group      singleflight.Group

	mu         sync.RWMutex
	state      LoadState
	snapshot   []model.Property
	membership []string
	err        error
	loadedAt   time.Time
}

// NewSnapshotCache 新しいSnapshotCacheを作成
func NewSnapshotCache(properties repository.PropertiesRepository, wishlist repository.WishlistRepository, session repository.SessionProvider) *SnapshotCache {
	return &SnapshotCache{
		properties: properties,
		wishlist:   wishlist,
		session:    session,
	}
}

// Load 初回のみリポジトリから取得する。ロード済みなら何もしない。
// 失敗済みの場合は保存したエラーを返し、再取得は Retry で明示的に行う
func (c *SnapshotCache) Load(ctx context.Context) error {
	c.mu.RLock()
	state, err := c.state, c.err
	c.mu.RUnlock()

	switch state {
	case LoadStateLoaded:
		return nil
	case LoadStateFailed:
		return err
	}
	return c.fetchShared(ctx)
}

// Retry 失敗後の再取得。実行中のロードがあればそれに相乗りし、重複リクエストは発行しない
func (c *SnapshotCache) Retry(ctx context.Context) error {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	if state == LoadStateLoaded {
		return nil
	}
	return c.fetchShared(ctx)
}

func (c *SnapshotCache) fetchShared(ctx context.Context) error {
	// 共有のロードは最初の呼び出し元のキャンセルに引きずられない
	shared := context.WithoutCancel(ctx)
	_, err, _ := c.group.Do("snapshot", func() (interface{}, error) {
		return nil, c.fetch(shared)
	})
	return err
}

func (c *SnapshotCache) fetch(ctx context.Context) error {
	c.mu.Lock()
	if c.state == LoadStateLoaded {
		c.mu.Unlock()
		return nil
	}
	c.state = LoadStateLoading
	c.mu.Unlock()

	var user *model.User
	if c.session != nil {
		user = c.session.CurrentUser()
	}

	var (
		wg          sync.WaitGroup
		properties  []model.Property
		propertyErr error
		membership  []string
		wishlistErr error
	)

	// 物件とお気に入りを並行取得
	wg.Add(1)
	go func() {
		defer wg.Done()
		properties, propertyErr = c.properties.QueryActive(ctx)
	}()

	if user != nil && c.wishlist != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			membership, wishlistErr = c.wishlist.ListForUser(ctx, user.ID)
		}()
	}
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	if propertyErr != nil {
		c.state = LoadStateFailed
		c.err = fmt.Errorf("物件スナップショットのロード失敗: %w", propertyErr)
		metrics.SnapshotLoads.WithLabelValues("failed").Inc()
		logging.Error().Err(propertyErr).Msg("❌ 物件スナップショットのロードに失敗")
		return c.err
	}

	// お気に入り取得の失敗は物件一覧の表示を妨げない
	if wishlistErr != nil {
		logging.Warn().Err(wishlistErr).Str("user_id", user.ID).Msg("⚠️ お気に入りの取得に失敗、空として扱います")
		membership = nil
	}

	c.snapshot = properties
	c.membership = membership
	c.state = LoadStateLoaded
	c.err = nil
	c.loadedAt = time.Now()
	metrics.SnapshotLoads.WithLabelValues("loaded").Inc()
	logging.Info().Int("properties", len(properties)).Int("favorites", len(membership)).Msg("✅ 物件スナップショットをロード")
	return nil
}

// State 現在のロード状態
func (c *SnapshotCache) State() LoadState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Err 直近のロードエラー
func (c *SnapshotCache) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Snapshot ロード済みの物件一覧（読み取り専用、呼び出し側で変更しないこと）
func (c *SnapshotCache) Snapshot() []model.Property {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Membership ロード時点のお気に入り物件ID
func (c *SnapshotCache) Membership() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.membership))
	copy(out, c.membership)
	return out
}

// LoadedAt ロード完了時刻
func (c *SnapshotCache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Find IDで物件を検索
func (c *SnapshotCache) Find(id string) (*model.Property, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.snapshot {
		if c.snapshot[i].ID == id {
			p := c.snapshot[i]
			return &p, true
		}
	}
	return nil, false
}
