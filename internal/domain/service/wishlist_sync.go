package service

import (
	"context"
	"sync"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/domain/repository"
	"StayMap-App/internal/infrastructure/logging"
	"StayMap-App/internal/infrastructure/metrics"
)

// ReconcileState お気に入り1件ごとの同期状態
type ReconcileState int

const (
	Settled ReconcileState = iota
	PendingAdd
	PendingRemove
)

func (s ReconcileState) String() string {
	switch s {
	case Settled:
		return "settled"
	case PendingAdd:
		return "pending-add"
	case PendingRemove:
		return "pending-remove"
	}
	return "unknown"
}

type wishlistEntity struct {
	persisted bool // サーバーで確定している状態
	desired   bool // ローカル（楽観的）状態
	inFlight  bool
}

// WishlistSync 楽観的なお気に入り切り替えと、サーバー状態との整合を担う
//
// 物件ごとに送信中のリクエストは最大1件。送信中の切り替えは希望状態だけを更新し、
// 完了時に希望状態と確定状態が異なる場合のみ追加で1件送る。
// リポジトリが失敗した場合は確定状態にロールバックする。
type WishlistSync struct {
	repo       repository.WishlistRepository
	session    repository.SessionProvider
	redirector LoginRedirector
	onChange   func(propertyID string, favorited bool)

	mu       sync.Mutex
	entities map[string]*wishlistEntity
	wg       sync.WaitGroup
}

// NewWishlistSync 新しいWishlistSyncを作成
func NewWishlistSync(repo repository.WishlistRepository, session repository.SessionProvider, redirector LoginRedirector) *WishlistSync {
	return &WishlistSync{
		repo:       repo,
		session:    session,
		redirector: redirector,
		entities:   make(map[string]*wishlistEntity),
	}
}

// OnChange ローカル状態が変わったとき（切り替え・ロールバック）のコールバックを設定
func (w *WishlistSync) OnChange(fn func(propertyID string, favorited bool)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Seed ロード済みのお気に入りで初期化する（確定状態として扱う）
func (w *WishlistSync) Seed(propertyIDs []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range propertyIDs {
		e := w.entityLocked(id)
		if e.inFlight {
			continue
		}
		e.persisted = true
		e.desired = true
	}
}

func (w *WishlistSync) entityLocked(id string) *wishlistEntity {
	e, ok := w.entities[id]
	if !ok {
		e = &wishlistEntity{}
		w.entities[id] = e
	}
	return e
}

// IsFavorite ローカル（楽観的）状態
func (w *WishlistSync) IsFavorite(propertyID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[propertyID]
	return ok && e.desired
}

// State 物件の同期状態
func (w *WishlistSync) State(propertyID string) ReconcileState {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[propertyID]
	if !ok || (!e.inFlight && e.persisted == e.desired) {
		return Settled
	}
	if e.desired {
		return PendingAdd
	}
	return PendingRemove
}

// Favorites ローカル状態でお気に入りになっている物件ID
func (w *WishlistSync) Favorites() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.entities))
	for id, e := range w.entities {
		if e.desired {
			ids = append(ids, id)
		}
	}
	return ids
}

// Toggle お気に入りを切り替える
//
// 未ログインならログイン画面へ誘導し、状態は一切変更しない。
// ログイン済みならローカル状態を同期的に反転し、サーバーとの整合はバックグラウンドで行う。
func (w *WishlistSync) Toggle(ctx context.Context, propertyID string) (bool, error) {
	user := w.session.CurrentUser()
	if user == nil {
		if w.redirector != nil {
			w.redirector.RedirectToLogin()
		}
		return false, model.ErrNotAuthenticated
	}

	w.mu.Lock()
	e := w.entityLocked(propertyID)
	e.desired = !e.desired
	favorited := e.desired
	start := !e.inFlight && e.desired != e.persisted
	if start {
		e.inFlight = true
		w.wg.Add(1)
	}
	onChange := w.onChange
	w.mu.Unlock()

	if onChange != nil {
		onChange(propertyID, favorited)
	}
	if start {
		go w.reconcile(context.WithoutCancel(ctx), user.ID, propertyID)
	}
	return favorited, nil
}

// reconcile 希望状態と確定状態が一致するまで、1件ずつ順番にリクエストを送る
func (w *WishlistSync) reconcile(ctx context.Context, userID, propertyID string) {
	defer w.wg.Done()

	for {
		w.mu.Lock()
		e := w.entities[propertyID]
		target := e.desired
		if target == e.persisted {
			e.inFlight = false
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		operation := "remove"
		var err error
		if target {
			operation = "add"
			err = w.repo.Add(ctx, userID, propertyID)
		} else {
			err = w.repo.Remove(ctx, userID, propertyID)
		}

		w.mu.Lock()
		if err != nil {
			metrics.WishlistRequests.WithLabelValues(operation, "error").Inc()
			changed := e.desired != e.persisted
			e.desired = e.persisted
			e.inFlight = false
			favorited := e.desired
			onChange := w.onChange
			w.mu.Unlock()

			metrics.WishlistRollbacks.Inc()
			logging.Warn().Err(err).Str("property_id", propertyID).Str("operation", operation).
				Msg("⚠️ お気に入りの保存に失敗、ロールバックしました")
			if changed && onChange != nil {
				onChange(propertyID, favorited)
			}
			return
		}
		metrics.WishlistRequests.WithLabelValues(operation, "ok").Inc()
		e.persisted = target
		w.mu.Unlock()
	}
}

// Busy 送信中のリクエストがあるか
func (w *WishlistSync) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range w.entities {
		if e.inFlight {
			return true
		}
	}
	return false
}

// Wait 実行中の整合処理がすべて終わるまで待つ
func (w *WishlistSync) Wait() {
	w.wg.Wait()
}
