package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"StayMap-App/internal/domain/model"
)

// fakeScheduler 時間を手動で進めるスケジューラ
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	due     time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{}
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &fakeTimer{s: s, due: s.now + d, seq: s.seq, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance 時刻を進め、期限を迎えたタイマーを期限順に発火する（ロック外で実行）
func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var due []*fakeTimer
		for _, t := range s.timers {
			if !t.stopped && !t.fired && t.due <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			s.now = target
			s.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].due == due[j].due {
				return due[i].seq < due[j].seq
			}
			return due[i].due < due[j].due
		})
		next := due[0]
		next.fired = true
		s.now = next.due
		s.mu.Unlock()

		next.fn()
	}
}

// Pending 未発火のタイマー数
func (s *fakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fakeSurface 地図本体のフェイク
type fakeSurface struct {
	mu     sync.Mutex
	bounds model.Bounds
	ready  bool
	reads  int
	pans   []model.LatLng
}

var _ MapSurface = (*fakeSurface)(nil)

func newFakeSurface(b model.Bounds) *fakeSurface {
	return &fakeSurface{bounds: b, ready: true}
}

func (s *fakeSurface) Bounds() (model.Bounds, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return s.bounds, s.ready
}

func (s *fakeSurface) PanTo(target model.LatLng) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pans = append(s.pans, target)
}

func (s *fakeSurface) SetBounds(b model.Bounds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = b
}

func (s *fakeSurface) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *fakeSurface) Pans() []model.LatLng {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.LatLng(nil), s.pans...)
}

// fakeOverlays オーバーレイライブラリのフェイク
type fakeOverlays struct {
	mu        sync.Mutex
	ready     bool
	seq       int
	attached  map[OverlayHandle]string
	creates   []string
	destroys  []string
	variants  map[OverlayHandle]MarkerVariant
	zIndexes  map[OverlayHandle]int
	attachErr map[string]error
}

func newFakeOverlays() *fakeOverlays {
	return &fakeOverlays{
		ready:     true,
		attached:  map[OverlayHandle]string{},
		variants:  map[OverlayHandle]MarkerVariant{},
		zIndexes:  map[OverlayHandle]int{},
		attachErr: map[string]error{},
	}
}

func (o *fakeOverlays) Ready() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ready
}

func (o *fakeOverlays) Attach(p model.Property, zIndex int) (OverlayHandle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.attachErr[p.ID]; err != nil {
		return "", err
	}
	o.seq++
	h := OverlayHandle(fmt.Sprintf("overlay-%d", o.seq))
	o.attached[h] = p.ID
	o.creates = append(o.creates, p.ID)
	o.zIndexes[h] = zIndex
	return h, nil
}

func (o *fakeOverlays) Detach(h OverlayHandle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.destroys = append(o.destroys, o.attached[h])
	delete(o.attached, h)
}

func (o *fakeOverlays) SetVariant(h OverlayHandle, variant MarkerVariant) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.variants[h] = variant
}

func (o *fakeOverlays) SetZIndex(h OverlayHandle, zIndex int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.zIndexes[h] = zIndex
}

func (o *fakeOverlays) Counts() (creates, destroys int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.creates), len(o.destroys)
}

func (o *fakeOverlays) Attached() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.attached)
}

// fakePreview プレビューパネルのフェイク
type fakePreview struct {
	mu      sync.Mutex
	visible bool
	content PreviewContent
	at      ScreenPoint
	hides   int
}

func (p *fakePreview) Show(content PreviewContent, at ScreenPoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = true
	p.content = content
	p.at = at
}

func (p *fakePreview) Move(at ScreenPoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.at = at
}

func (p *fakePreview) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = false
	p.hides++
}

// fakeNavigator 遷移先を記録する
type fakeNavigator struct {
	mu  sync.Mutex
	ids []string
}

func (n *fakeNavigator) NavigateToProperty(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
}

func (n *fakeNavigator) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.ids...)
}

// fakeRedirector ログイン誘導の回数を記録する
type fakeRedirector struct {
	mu    sync.Mutex
	count int
}

func (r *fakeRedirector) RedirectToLogin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
}

func (r *fakeRedirector) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// fakeSession 現在ユーザーを返す
type fakeSession struct {
	user *model.User
}

func (s fakeSession) CurrentUser() *model.User {
	return s.user
}

var loggedIn = fakeSession{user: &model.User{ID: "user-1", Email: "guest@example.com"}}

// fakePropertiesRepo 物件リポジトリのフェイク
type fakePropertiesRepo struct {
	mu         sync.Mutex
	properties []model.Property
	err        error
	calls      int
	block      chan struct{}
}

func (r *fakePropertiesRepo) QueryActive(ctx context.Context) ([]model.Property, error) {
	r.mu.Lock()
	r.calls++
	block := r.block
	props, err := r.properties, r.err
	r.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return props, err
}

func (r *fakePropertiesRepo) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *fakePropertiesRepo) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type wishlistCall struct {
	op         string
	userID     string
	propertyID string
}

// fakeWishlistRepo お気に入りリポジトリのフェイク
type fakeWishlistRepo struct {
	mu      sync.Mutex
	members []string
	listErr error
	failOps map[string]error
	calls   []wishlistCall
	gate    chan struct{}
	started chan struct{}
}

func newFakeWishlistRepo() *fakeWishlistRepo {
	return &fakeWishlistRepo{failOps: map[string]error{}}
}

func (r *fakeWishlistRepo) ListForUser(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.members...), r.listErr
}

func (r *fakeWishlistRepo) Add(ctx context.Context, userID, propertyID string) error {
	return r.do(wishlistCall{op: "add", userID: userID, propertyID: propertyID})
}

func (r *fakeWishlistRepo) Remove(ctx context.Context, userID, propertyID string) error {
	return r.do(wishlistCall{op: "remove", userID: userID, propertyID: propertyID})
}

func (r *fakeWishlistRepo) do(call wishlistCall) error {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	gate, started := r.gate, r.started
	err := r.failOps[call.op]
	r.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return err
}

func (r *fakeWishlistRepo) Calls() []wishlistCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]wishlistCall(nil), r.calls...)
}

var errBackend = errors.New("backend unavailable")

// fakePlaces 住所検索プロバイダのフェイク。入力ごとに応答を手動で返せる
type fakePlaces struct {
	mu         sync.Mutex
	requests   []string
	pending    map[string]chan placesReply
	details    map[string]*model.PlaceDetails
	resolveErr error
	predicted  chan string
}

type placesReply struct {
	predictions []model.Prediction
	err         error
}

func newFakePlaces() *fakePlaces {
	return &fakePlaces{
		pending:   map[string]chan placesReply{},
		details:   map[string]*model.PlaceDetails{},
		predicted: make(chan string, 16),
	}
}

func (p *fakePlaces) Predict(ctx context.Context, text, country string) ([]model.Prediction, error) {
	p.mu.Lock()
	p.requests = append(p.requests, text)
	ch := make(chan placesReply, 1)
	p.pending[text] = ch
	p.mu.Unlock()

	p.predicted <- text
	select {
	case reply := <-ch:
		return reply.predictions, reply.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reply 保留中の問い合わせに応答する
func (p *fakePlaces) Reply(text string, predictions []model.Prediction, err error) {
	p.mu.Lock()
	ch := p.pending[text]
	p.mu.Unlock()
	ch <- placesReply{predictions: predictions, err: err}
}

func (p *fakePlaces) Resolve(ctx context.Context, id string) (*model.PlaceDetails, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolveErr != nil {
		return nil, p.resolveErr
	}
	d, ok := p.details[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return d, nil
}

func (p *fakePlaces) Requests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.requests...)
}

func ptrInt(v int) *int { return &v }

func property(id string, lat, lng float64, price int) model.Property {
	return model.Property{
		ID:            id,
		Title:         "listing " + id,
		PricePerNight: price,
		Location:      &model.LatLng{Lat: lat, Lng: lng},
		Category:      model.CategoryApartment,
		Bedrooms:      1,
		Guests:        2,
	}
}

func ids(props []model.Property) []string {
	out := make([]string, len(props))
	for i := range props {
		out[i] = props[i].ID
	}
	return out
}
