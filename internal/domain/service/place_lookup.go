package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/domain/repository"
	"StayMap-App/internal/infrastructure/logging"
	"StayMap-App/internal/infrastructure/metrics"
)

// DefaultLookupDebounce 入力が落ち着いてから候補を問い合わせるまでの待ち時間
const DefaultLookupDebounce = 175 * time.Millisecond

// ErrLookupClosed Close後の呼び出し
var ErrLookupClosed = errors.New("place lookup は終了しています")

// PanTarget 地図の移動先
type PanTarget struct {
	model.LatLng
	Label string `json:"label"`
}

// PlaceLookupOptions PlaceLookupの設定
type PlaceLookupOptions struct {
	Country       string
	Debounce      time.Duration
	Scheduler     Scheduler
	Limiter       *rate.Limiter
	OnSuggestions func([]model.Prediction)
	OnPan         func(PanTarget)
}

// PlaceLookup 自由入力を座標に変換して地図を移動させる入力補助
//
// 応答は入力順に返るとは限らないため、世代カウンタで最新の問い合わせ以外の結果を捨てる。
// エラーや0件は候補リストを空にするだけで、利用者には表面化しない。
type PlaceLookup struct {
	provider  repository.PlacesProvider
	surface   MapSurface
	debouncer *Debouncer
	limiter   *rate.Limiter
	country   string

	onSuggestions func([]model.Prediction)
	onPan         func(PanTarget)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	generation  uint64
	suggestions []model.Prediction
	closed      bool
}

// NewPlaceLookup 新しいPlaceLookupを作成
func NewPlaceLookup(provider repository.PlacesProvider, surface MapSurface, opts PlaceLookupOptions) *PlaceLookup {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultLookupDebounce
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PlaceLookup{
		provider:      provider,
		surface:       surface,
		debouncer:     NewDebouncer(opts.Debounce, opts.Scheduler),
		limiter:       opts.Limiter,
		country:       opts.Country,
		onSuggestions: opts.OnSuggestions,
		onPan:         opts.OnPan,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Input 入力の断片を受け取る。問い合わせはデバウンス後に非同期で行い、入力をブロックしない
func (l *PlaceLookup) Input(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		l.debouncer.Cancel()
		l.publish(l.bumpGeneration(), nil)
		return
	}
	l.debouncer.Trigger(func() {
		l.fetch(text)
	})
}

func (l *PlaceLookup) bumpGeneration() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	return l.generation
}

func (l *PlaceLookup) fetch(text string) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.generation++
	gen := l.generation
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()

		predictions, err := l.predict(text)
		if err != nil {
			logging.Debug().Err(err).Str("input", text).Msg("候補の取得に失敗、候補を空にします")
			predictions = nil
		}
		l.publish(gen, predictions)
	}()
}

func (l *PlaceLookup) predict(text string) ([]model.Prediction, error) {
	if err := l.limiter.Wait(l.ctx); err != nil {
		return nil, err
	}
	return l.provider.Predict(l.ctx, text, l.country)
}

// publish 最新世代の結果だけを反映する。Close後の遅延応答は捨てる
func (l *PlaceLookup) publish(gen uint64, predictions []model.Prediction) {
	l.mu.Lock()
	if l.closed || gen != l.generation {
		l.mu.Unlock()
		metrics.PlacesCalls.WithLabelValues("predict", "dropped").Inc()
		return
	}
	l.suggestions = predictions
	callback := l.onSuggestions
	snapshot := make([]model.Prediction, len(predictions))
	copy(snapshot, predictions)
	l.mu.Unlock()

	if callback != nil {
		callback(snapshot)
	}
}

// Suggestions 現在の候補リスト
func (l *PlaceLookup) Suggestions() []model.Prediction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Prediction, len(l.suggestions))
	copy(out, l.suggestions)
	return out
}

// Select 候補を確定して座標を解決し、地図を移動させる
func (l *PlaceLookup) Select(ctx context.Context, predictionID string) (*PanTarget, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrLookupClosed
	}
	l.mu.Unlock()

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	details, err := l.provider.Resolve(ctx, predictionID)
	if err != nil {
		l.publish(l.bumpGeneration(), nil)
		return nil, err
	}

	target := PanTarget{LatLng: details.ToLatLng(), Label: details.Label}
	if !target.Valid() {
		l.publish(l.bumpGeneration(), nil)
		return nil, model.ErrInvalidCoordinate
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrLookupClosed
	}
	l.generation++
	l.suggestions = nil
	onPan := l.onPan
	l.mu.Unlock()

	// 外部からのパン指示は常に即座に優先する
	if l.surface != nil {
		l.surface.PanTo(target.LatLng)
	}
	if onPan != nil {
		onPan(target)
	}
	return &target, nil
}

// Close アンマウント時に呼ぶ。タイマーを破棄し、以後の応答を無視する
func (l *PlaceLookup) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.debouncer.Stop()
	l.cancel()
}

// Wait 実行中の問い合わせがすべて終わるまで待つ
func (l *PlaceLookup) Wait() {
	l.wg.Wait()
}
