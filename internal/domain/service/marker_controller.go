package service

import (
	"fmt"
	"sync"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/infrastructure/logging"
)

const (
	baseZIndex    = 1
	hoveredZIndex = 1000
)

// MarkerPhase マーカーごとの状態
type MarkerPhase int

const (
	MarkerAbsent MarkerPhase = iota
	MarkerIdle
	MarkerHovered
)

func (p MarkerPhase) String() string {
	switch p {
	case MarkerAbsent:
		return "absent"
	case MarkerIdle:
		return "rendered-idle"
	case MarkerHovered:
		return "rendered-hovered"
	}
	return "unknown"
}

// MarkerState 物件ごとのクライアント専用状態（永続化しない）
type MarkerState struct {
	PropertyID string
	Handle     OverlayHandle
	Phase      MarkerPhase
	ZIndex     int
	property   model.Property
}

// SyncResult Sync で実際に追加・削除されたマーカー
type SyncResult struct {
	Added   []string
	Removed []string
}

// MarkerController 地図上のオーバーレイを表示対象セットと一致させ、ポインタ操作を処理する
//
// 差分更新では出入りした物件のマーカーだけを触り、両方のセットに存在する物件のマーカーは作り直さない。
// クリックによる遷移は終端状態で、以後の呼び出しはすべて無視する。
type MarkerController struct {
	provider  OverlayProvider
	preview   PreviewPanel
	navigator Navigator

	mu           sync.Mutex
	markers      map[string]*MarkerState
	wanted       []model.Property
	hoveredID    string
	needsRebuild bool
	closed       bool
}

// NewMarkerController 新しいMarkerControllerを作成
func NewMarkerController(provider OverlayProvider, preview PreviewPanel, navigator Navigator) *MarkerController {
	return &MarkerController{
		provider:  provider,
		preview:   preview,
		navigator: navigator,
		markers:   make(map[string]*MarkerState),
	}
}

// Sync 表示対象セットに合わせてマーカーを差分更新する
func (c *MarkerController) Sync(visible []model.Property) SyncResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return SyncResult{}
	}
	c.wanted = visible

	// オーバーレイライブラリの初期化前は、完了後に全件描画する
	if !c.provider.Ready() {
		c.needsRebuild = true
		return SyncResult{}
	}
	return c.applyLocked(visible)
}

// ProviderReady オーバーレイライブラリの非同期初期化完了通知
func (c *MarkerController) ProviderReady() SyncResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.needsRebuild {
		return SyncResult{}
	}
	c.needsRebuild = false
	logging.Debug().Int("markers", len(c.wanted)).Msg("オーバーレイ初期化完了、マーカーを再構築")
	return c.applyLocked(c.wanted)
}

func (c *MarkerController) applyLocked(visible []model.Property) SyncResult {
	var result SyncResult

	next := make(map[string]struct{}, len(visible))
	for i := range visible {
		next[visible[i].ID] = struct{}{}
	}

	// セットから外れたマーカーを取り外す
	for id, m := range c.markers {
		if _, keep := next[id]; keep {
			continue
		}
		if c.hoveredID == id {
			c.preview.Hide()
			c.hoveredID = ""
		}
		c.provider.Detach(m.Handle)
		delete(c.markers, id)
		result.Removed = append(result.Removed, id)
	}

	// 新たに入った物件のマーカーを取り付ける
	for i := range visible {
		p := visible[i]
		if _, exists := c.markers[p.ID]; exists {
			continue
		}
		if !p.HasLocation() {
			continue
		}
		handle, err := c.provider.Attach(p, baseZIndex)
		if err != nil {
			logging.Warn().Err(err).Str("property_id", p.ID).Msg("⚠️ マーカーの取り付けに失敗")
			continue
		}
		c.markers[p.ID] = &MarkerState{
			PropertyID: p.ID,
			Handle:     handle,
			Phase:      MarkerIdle,
			ZIndex:     baseZIndex,
			property:   p,
		}
		result.Added = append(result.Added, p.ID)
	}

	return result
}

// PointerEnter マーカーにポインタが入った
func (c *MarkerController) PointerEnter(id string, at ScreenPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.markers[id]
	if c.closed || !ok {
		return
	}
	if c.hoveredID != "" && c.hoveredID != id {
		c.resetLocked(c.hoveredID)
	}

	m.Phase = MarkerHovered
	m.ZIndex = hoveredZIndex
	c.provider.SetVariant(m.Handle, VariantHovered)
	c.provider.SetZIndex(m.Handle, hoveredZIndex)
	c.hoveredID = id
	c.preview.Show(PreviewContent{
		PropertyID: id,
		PhotoURL:   m.property.CoverPhoto(),
		PriceLabel: FormatNightlyPrice(m.property.PricePerNight),
	}, at)
}

// PointerMove ホバー中のマーカー上でポインタが動いた
func (c *MarkerController) PointerMove(id string, at ScreenPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.hoveredID != id {
		return
	}
	c.preview.Move(at)
}

// PointerLeave マーカーからポインタが出た
func (c *MarkerController) PointerLeave(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.hoveredID != id {
		return
	}
	c.resetLocked(id)
	c.hoveredID = ""
	c.preview.Hide()
}

func (c *MarkerController) resetLocked(id string) {
	m, ok := c.markers[id]
	if !ok {
		return
	}
	m.Phase = MarkerIdle
	m.ZIndex = baseZIndex
	c.provider.SetVariant(m.Handle, VariantIdle)
	c.provider.SetZIndex(m.Handle, baseZIndex)
}

// Click ホバー状態に関係なく物件詳細へ遷移する。遷移後のコントローラーは終端状態
func (c *MarkerController) Click(id string) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if _, ok := c.markers[id]; !ok {
		c.mu.Unlock()
		return false
	}
	c.closed = true
	c.mu.Unlock()

	c.navigator.NavigateToProperty(id)
	return true
}

// Close アンマウント時にすべてのオーバーレイを取り外す
func (c *MarkerController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hoveredID != "" {
		c.preview.Hide()
		c.hoveredID = ""
	}
	for id, m := range c.markers {
		c.provider.Detach(m.Handle)
		delete(c.markers, id)
	}
	c.closed = true
}

// Marker 物件のマーカー状態を返す
func (c *MarkerController) Marker(id string) (MarkerState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.markers[id]
	if !ok {
		return MarkerState{PropertyID: id, Phase: MarkerAbsent}, false
	}
	return *m, true
}

// Len 描画中のマーカー数
func (c *MarkerController) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.markers)
}

// Closed 遷移またはアンマウント済みか
func (c *MarkerController) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// FormatNightlyPrice プレビュー用の1泊料金表示
func FormatNightlyPrice(price int) string {
	return fmt.Sprintf("$%d / night", price)
}
