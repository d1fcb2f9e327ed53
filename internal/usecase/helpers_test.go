package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/domain/service"
)

// manualScheduler Advanceを呼ぶまでタイマーを発火しないスケジューラ
type manualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	s    *manualScheduler
	due  time.Duration
	fn   func()
	done bool
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) service.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, due: s.now + d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	active := !t.done
	t.done = true
	return active
}

func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*manualTimer
	for _, t := range s.timers {
		if !t.done && t.due <= s.now {
			t.done = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

type stubSurface struct {
	mu     sync.Mutex
	bounds model.Bounds
	ready  bool
	pans   []model.LatLng
}

func (s *stubSurface) Bounds() (model.Bounds, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounds, s.ready
}

func (s *stubSurface) PanTo(target model.LatLng) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pans = append(s.pans, target)
	// パン後はその地点を中心とした矩形が見えている
	s.bounds = model.Bounds{North: target.Lat + 0.5, South: target.Lat - 0.5, East: target.Lng + 0.5, West: target.Lng - 0.5}
}

func (s *stubSurface) SetBounds(b model.Bounds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = b
}

type stubOverlays struct {
	mu       sync.Mutex
	attached map[service.OverlayHandle]string
}

func newStubOverlays() *stubOverlays {
	return &stubOverlays{attached: map[service.OverlayHandle]string{}}
}

func (o *stubOverlays) Ready() bool { return true }

func (o *stubOverlays) Attach(p model.Property, zIndex int) (service.OverlayHandle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	h := service.OverlayHandle("overlay-" + p.ID)
	o.attached[h] = p.ID
	return h, nil
}

func (o *stubOverlays) Detach(h service.OverlayHandle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.attached, h)
}

func (o *stubOverlays) SetVariant(service.OverlayHandle, service.MarkerVariant) {}
func (o *stubOverlays) SetZIndex(service.OverlayHandle, int)                   {}

func (o *stubOverlays) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.attached)
}

// IDs 現在表示中のマーカーの物件ID（昇順）
func (o *stubOverlays) IDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.attached))
	for _, id := range o.attached {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type stubPreview struct{}

func (stubPreview) Show(service.PreviewContent, service.ScreenPoint) {}
func (stubPreview) Move(service.ScreenPoint)                         {}
func (stubPreview) Hide()                                            {}

type recordingNavigator struct {
	mu  sync.Mutex
	ids []string
}

func (n *recordingNavigator) NavigateToProperty(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
}

type countingRedirector struct {
	mu    sync.Mutex
	count int
}

func (r *countingRedirector) RedirectToLogin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
}

type stubProperties struct {
	mu         sync.Mutex
	properties []model.Property
	err        error
	calls      int
}

func (r *stubProperties) QueryActive(ctx context.Context) ([]model.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.properties, r.err
}

type memoryWishlist struct {
	mu      sync.Mutex
	members map[string]map[string]bool
	failAdd error
	adds    int
}

func newMemoryWishlist() *memoryWishlist {
	return &memoryWishlist{members: map[string]map[string]bool{}}
}

func (r *memoryWishlist) ListForUser(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id := range r.members[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memoryWishlist) Add(ctx context.Context, userID, propertyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adds++
	if r.failAdd != nil {
		return r.failAdd
	}
	if r.members[userID] == nil {
		r.members[userID] = map[string]bool{}
	}
	r.members[userID][propertyID] = true
	return nil
}

func (r *memoryWishlist) Remove(ctx context.Context, userID, propertyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[userID], propertyID)
	return nil
}

func (r *memoryWishlist) Has(userID, propertyID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[userID][propertyID]
}

type stubPlaces struct {
	predictions []model.Prediction
	details     map[string]*model.PlaceDetails
	err         error
	lastCountry string
}

func (p *stubPlaces) Predict(ctx context.Context, text, country string) ([]model.Prediction, error) {
	p.lastCountry = country
	return p.predictions, p.err
}

func (p *stubPlaces) Resolve(ctx context.Context, id string) (*model.PlaceDetails, error) {
	if p.err != nil {
		return nil, p.err
	}
	d, ok := p.details[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return d, nil
}

type memoryPreferences struct {
	mu      sync.Mutex
	modes   map[string]model.ViewMode
	saveErr error
	gets    int
}

func (r *memoryPreferences) GetViewMode(ctx context.Context, userID string) (model.ViewMode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	m, ok := r.modes[userID]
	if !ok {
		return "", model.ErrNotFound
	}
	return m, nil
}

func (r *memoryPreferences) SaveViewMode(ctx context.Context, userID string, mode model.ViewMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.modes[userID] = mode
	return nil
}

func listing(id string, lat, lng float64, price int, category model.Category) model.Property {
	return model.Property{
		ID:            id,
		Title:         "listing " + id,
		PricePerNight: price,
		Location:      &model.LatLng{Lat: lat, Lng: lng},
		Category:      category,
		Bedrooms:      2,
		Guests:        4,
	}
}

func italyListings() []model.Property {
	return []model.Property{
		listing("P1", 45.0, 9.0, 100, model.CategoryVilla),
		listing("P2", 41.9, 12.5, 900, model.CategoryLoft),
	}
}

var lombardy = model.Bounds{North: 46, South: 44, East: 10, West: 8}

func visibleIDs(props []model.Property) []string {
	out := make([]string, len(props))
	for i := range props {
		out[i] = props[i].ID
	}
	return out
}
