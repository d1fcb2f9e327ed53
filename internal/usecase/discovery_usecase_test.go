package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/domain/service"
)

func newTestUseCase() (DiscoveryUseCase, *stubProperties, *memoryWishlist, *stubPlaces) {
	props := &stubProperties{properties: italyListings()}
	wishlist := newMemoryWishlist()
	places := &stubPlaces{details: map[string]*model.PlaceDetails{}}
	uc := NewDiscoveryUseCase(props, wishlist, places, nil, DiscoveryOptions{Country: "it"})
	return uc, props, wishlist, places
}

func TestDiscoveryUseCase_VisibleProperties(t *testing.T) {
	ctx := context.Background()

	t.Run("境界と条件で絞り込み、件数ラベルと診断を返す", func(t *testing.T) {
		uc, props, _, _ := newTestUseCase()

		result, err := uc.VisibleProperties(ctx, &lombardy, model.FilterState{}.WithPriceMax(500))
		require.NoError(t, err)
		assert.Equal(t, []string{"P1"}, visibleIDs(result.Properties))
		assert.Equal(t, "1", result.CountLabel)
		assert.Equal(t, 2, result.Diagnosis.Total)
		assert.Equal(t, 1, result.Diagnosis.Rejected["bounds"])

		// スナップショットは1回だけロードされる
		_, err = uc.VisibleProperties(ctx, nil, model.DefaultFilterState())
		require.NoError(t, err)
		assert.Equal(t, 1, props.calls)
	})

	t.Run("不正な境界と条件はエラー", func(t *testing.T) {
		uc, _, _, _ := newTestUseCase()

		_, err := uc.VisibleProperties(ctx, &model.Bounds{North: 10, South: 20}, model.DefaultFilterState())
		assert.ErrorIs(t, err, model.ErrInvalidBounds)

		_, err = uc.VisibleProperties(ctx, nil, model.FilterState{Category: "igloo"})
		assert.ErrorIs(t, err, model.ErrInvalidFilter)
	})

	t.Run("ロード失敗はErrSnapshotNotLoaded", func(t *testing.T) {
		uc, props, _, _ := newTestUseCase()
		props.err = errors.New("db down")

		_, err := uc.VisibleProperties(ctx, nil, model.DefaultFilterState())
		assert.ErrorIs(t, err, model.ErrSnapshotNotLoaded)
		assert.Equal(t, service.LoadStateFailed, uc.SnapshotState())

		props.err = nil
		require.NoError(t, uc.Retry(ctx))
		assert.Equal(t, service.LoadStateLoaded, uc.SnapshotState())
	})
}

func TestDiscoveryUseCase_Wishlist(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: "u1"}

	t.Run("未ログインはErrNotAuthenticated", func(t *testing.T) {
		uc, _, wishlist, _ := newTestUseCase()

		_, err := uc.ToggleWishlist(ctx, nil, "P1")
		assert.ErrorIs(t, err, model.ErrNotAuthenticated)
		assert.Equal(t, 0, wishlist.adds)
	})

	t.Run("存在しない物件はErrNotFound", func(t *testing.T) {
		uc, _, _, _ := newTestUseCase()

		_, err := uc.ToggleWishlist(ctx, user, "nope")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("保存済みのお気に入りから切り替える", func(t *testing.T) {
		uc, _, wishlist, _ := newTestUseCase()
		require.NoError(t, wishlist.Add(ctx, "u1", "P2"))

		result, err := uc.ToggleWishlist(ctx, user, "P2")
		require.NoError(t, err)
		assert.False(t, result.Favorited)

		result, err = uc.ToggleWishlist(ctx, user, "P1")
		require.NoError(t, err)
		assert.True(t, result.Favorited)

		favorites, err := uc.Wishlist(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, []string{"P1"}, favorites)
	})
}

// gatedWishlist 指定ユーザーの一覧取得・追加をゲートが開くまで止める
type gatedWishlist struct {
	*memoryWishlist
	slowList string
	slowAdd  string
	entered  chan struct{}
	gate     chan struct{}
	lists    int32
}

func newGatedWishlist(slowList, slowAdd string) *gatedWishlist {
	return &gatedWishlist{
		memoryWishlist: newMemoryWishlist(),
		slowList:       slowList,
		slowAdd:        slowAdd,
		entered:        make(chan struct{}, 16),
		gate:           make(chan struct{}),
	}
}

func (r *gatedWishlist) ListForUser(ctx context.Context, userID string) ([]string, error) {
	atomic.AddInt32(&r.lists, 1)
	if userID == r.slowList {
		r.entered <- struct{}{}
		<-r.gate
	}
	return r.memoryWishlist.ListForUser(ctx, userID)
}

func (r *gatedWishlist) Add(ctx context.Context, userID, propertyID string) error {
	if userID == r.slowAdd {
		<-r.gate
	}
	return r.memoryWishlist.Add(ctx, userID, propertyID)
}

func TestDiscoveryUseCase_WishlistSyncs(t *testing.T) {
	ctx := context.Background()

	t.Run("遅いユーザーの初期化が他のユーザーを待たせない", func(t *testing.T) {
		wishlist := newGatedWishlist("slow", "")
		uc := NewDiscoveryUseCase(&stubProperties{properties: italyListings()}, wishlist, &stubPlaces{}, nil, DiscoveryOptions{})

		slowDone := make(chan error, 1)
		go func() {
			_, err := uc.Wishlist(ctx, &model.User{ID: "slow"})
			slowDone <- err
		}()
		<-wishlist.entered

		fastDone := make(chan error, 1)
		go func() {
			_, err := uc.Wishlist(ctx, &model.User{ID: "fast"})
			fastDone <- err
		}()
		select {
		case err := <-fastDone:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("別ユーザーの初期化が待たされている")
		}

		close(wishlist.gate)
		assert.NoError(t, <-slowDone)
	})

	t.Run("同じユーザーの同時アクセスは1回の取得にまとまる", func(t *testing.T) {
		wishlist := newGatedWishlist("u1", "")
		uc := NewDiscoveryUseCase(&stubProperties{properties: italyListings()}, wishlist, &stubPlaces{}, nil, DiscoveryOptions{})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := uc.Wishlist(ctx, &model.User{ID: "u1"})
				assert.NoError(t, err)
			}()
		}
		<-wishlist.entered
		close(wishlist.gate)
		wg.Wait()

		assert.Equal(t, int32(1), atomic.LoadInt32(&wishlist.lists))
	})

	t.Run("放置されたユーザーの同期は破棄され、送信中のものは残る", func(t *testing.T) {
		wishlist := newGatedWishlist("", "busy")
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		var clockMu sync.Mutex
		clock := func() time.Time {
			clockMu.Lock()
			defer clockMu.Unlock()
			return now
		}
		uc := NewDiscoveryUseCase(&stubProperties{properties: italyListings()}, wishlist, &stubPlaces{}, nil,
			DiscoveryOptions{WishlistIdleTTL: time.Minute, Now: clock})
		impl := uc.(*discoveryUseCaseImpl)

		_, err := uc.Wishlist(ctx, &model.User{ID: "idle"})
		require.NoError(t, err)
		// busyの追加はゲートが開くまで送信中のまま
		_, err = uc.ToggleWishlist(ctx, &model.User{ID: "busy"}, "P1")
		require.NoError(t, err)

		clockMu.Lock()
		now = now.Add(2 * time.Minute)
		clockMu.Unlock()

		_, err = uc.Wishlist(ctx, &model.User{ID: "fresh"})
		require.NoError(t, err)

		impl.mu.Lock()
		_, idleKept := impl.syncs["idle"]
		busy, busyKept := impl.syncs["busy"]
		_, freshKept := impl.syncs["fresh"]
		impl.mu.Unlock()
		assert.False(t, idleKept)
		assert.True(t, busyKept)
		assert.True(t, freshKept)

		close(wishlist.gate)
		busy.sync.Wait()
		assert.True(t, wishlist.Has("busy", "P1"))
	})
}

func TestDiscoveryUseCase_Places(t *testing.T) {
	ctx := context.Background()

	t.Run("空入力は問い合わせない", func(t *testing.T) {
		uc, _, _, places := newTestUseCase()
		places.err = errors.New("should not be called")

		predictions, err := uc.Autocomplete(ctx, "  ", "")
		require.NoError(t, err)
		assert.Empty(t, predictions)
	})

	t.Run("国コード未指定なら既定の国で絞り込む", func(t *testing.T) {
		uc, _, _, places := newTestUseCase()
		places.predictions = []model.Prediction{{ID: "milan", Description: "Milan, Italy"}}

		predictions, err := uc.Autocomplete(ctx, "mil", "")
		require.NoError(t, err)
		assert.Len(t, predictions, 1)
		assert.Equal(t, "it", places.lastCountry)
	})

	t.Run("範囲外の座標はエラー", func(t *testing.T) {
		uc, _, _, places := newTestUseCase()
		places.details["bad"] = &model.PlaceDetails{ID: "bad", Lat: 100}
		places.details["milan"] = &model.PlaceDetails{ID: "milan", Lat: 45.46, Lng: 9.19, Label: "Milan"}

		_, err := uc.ResolvePlace(ctx, "bad")
		assert.ErrorIs(t, err, model.ErrInvalidCoordinate)

		details, err := uc.ResolvePlace(ctx, "milan")
		require.NoError(t, err)
		assert.Equal(t, "Milan", details.Label)
	})
}

func TestViewModeSettings(t *testing.T) {
	ctx := context.Background()

	t.Run("未設定ならデフォルト", func(t *testing.T) {
		repo := &memoryPreferences{modes: map[string]model.ViewMode{}}
		settings := NewViewModeSettings(repo)

		assert.Equal(t, model.DefaultViewMode, settings.Get(ctx, "u1"))
		assert.Equal(t, model.DefaultViewMode, settings.Get(ctx, ""))
	})

	t.Run("Setは永続化し、以後はキャッシュから返す", func(t *testing.T) {
		repo := &memoryPreferences{modes: map[string]model.ViewMode{}}
		settings := NewViewModeSettings(repo)

		require.NoError(t, settings.Set(ctx, "u1", model.ViewModeList))
		assert.Equal(t, model.ViewModeList, repo.modes["u1"])
		assert.Equal(t, model.ViewModeList, settings.Get(ctx, "u1"))
		assert.Equal(t, 0, repo.gets)
	})

	t.Run("保存済みの値を読み込む", func(t *testing.T) {
		repo := &memoryPreferences{modes: map[string]model.ViewMode{"u1": model.ViewModeList}}
		settings := NewViewModeSettings(repo)

		assert.Equal(t, model.ViewModeList, settings.Get(ctx, "u1"))
		assert.Equal(t, model.ViewModeList, settings.Get(ctx, "u1"))
		assert.Equal(t, 1, repo.gets)
	})

	t.Run("永続化に失敗したら値を変えない", func(t *testing.T) {
		repo := &memoryPreferences{modes: map[string]model.ViewMode{}, saveErr: errors.New("firestore down")}
		settings := NewViewModeSettings(repo)

		assert.Error(t, settings.Set(ctx, "u1", model.ViewModeList))
		assert.Equal(t, model.DefaultViewMode, settings.Get(ctx, "u1"))
	})

	t.Run("不正な値と未ログインはエラー", func(t *testing.T) {
		settings := NewViewModeSettings(nil)

		assert.ErrorIs(t, settings.Set(ctx, "u1", "grid"), model.ErrInvalidViewMode)
		assert.ErrorIs(t, settings.Set(ctx, "", model.ViewModeList), model.ErrNotAuthenticated)
	})
}
