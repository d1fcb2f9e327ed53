package service

import (
	"sync"
	"time"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/infrastructure/logging"
)

// DefaultSettleDelay カメラ停止とみなすまでの静止期間
const DefaultSettleDelay = 300 * time.Millisecond

// BoundsTracker 高頻度のカメラ変更イベントを、低頻度で安定した境界シグナルに変換する
//
// 通知のたびに静止タイマーを再スタートし、満了時点のカメラ矩形だけを読み取って発行する。
// 地図が未初期化の場合はエラーにせず、SurfaceReady まで発行を保留する。
type BoundsTracker struct {
	surface   MapSurface
	debouncer *Debouncer
	onSettle  func(model.Bounds)

	mu       sync.Mutex
	current  *model.Bounds
	started  bool
	deferred bool
	stopped  bool
}

// NewBoundsTracker 新しいBoundsTrackerを作成
func NewBoundsTracker(surface MapSurface, settleDelay time.Duration, scheduler Scheduler, onSettle func(model.Bounds)) *BoundsTracker {
	if settleDelay <= 0 {
		settleDelay = DefaultSettleDelay
	}
	return &BoundsTracker{
		surface:   surface,
		debouncer: NewDebouncer(settleDelay, scheduler),
		onSettle:  onSettle,
	}
}

// Start マウント時に呼ぶ。ユーザー操作なしで最初の安定ビューポートを1回発行する
func (t *BoundsTracker) Start() {
	t.mu.Lock()
	if t.started || t.stopped {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	t.Notify()
}

// Notify カメラ変更通知（ドラッグ・ズーム中に高頻度で呼ばれる）
func (t *BoundsTracker) Notify() {
	t.debouncer.Trigger(t.settle)
}

// SurfaceReady 地図の初期化完了通知。保留中の発行があれば即座に行う
func (t *BoundsTracker) SurfaceReady() {
	t.mu.Lock()
	deferred := t.deferred && !t.stopped
	t.mu.Unlock()

	if deferred {
		t.settle()
	}
}

func (t *BoundsTracker) settle() {
	bounds, ok := t.surface.Bounds()

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	if !ok {
		t.deferred = true
		t.mu.Unlock()
		logging.Debug().Msg("地図が未初期化のため境界の発行を保留")
		return
	}
	t.deferred = false
	t.current = &bounds
	onSettle := t.onSettle
	t.mu.Unlock()

	if onSettle != nil {
		onSettle(bounds)
	}
}

// Current 最後に発行した境界。まだ発行していなければfalse
func (t *BoundsTracker) Current() (model.Bounds, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return model.Bounds{}, false
	}
	return *t.current, true
}

// Stop アンマウント時に静止タイマーを破棄する
func (t *BoundsTracker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
	t.debouncer.Stop()
}
