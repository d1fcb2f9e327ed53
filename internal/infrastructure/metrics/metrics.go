package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VisibleSetRecomputes 表示対象セットの再計算回数（trigger: bounds, filters, snapshot, request）
	VisibleSetRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staymap_visible_set_recomputes_total",
			Help: "Total number of visible set derivations",
		},
		[]string{"trigger"},
	)

	VisibleSetSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "staymap_visible_set_size",
			Help:    "Number of properties in derived visible sets",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
	)

	// SnapshotLoads 物件スナップショットのロード結果（outcome: loaded, failed）
	SnapshotLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staymap_snapshot_loads_total",
			Help: "Total number of property snapshot loads by outcome",
		},
		[]string{"outcome"},
	)

	WishlistRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staymap_wishlist_requests_total",
			Help: "Total number of wishlist repository mutations",
		},
		[]string{"operation", "outcome"},
	)

	WishlistRollbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "staymap_wishlist_rollbacks_total",
			Help: "Total number of optimistic wishlist toggles rolled back after a failure",
		},
	)

	// PlacesCalls 外部プレイスAPI呼び出し（operation: predict, resolve / outcome: ok, error, cache_hit, dropped）
	PlacesCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staymap_places_calls_total",
			Help: "Total number of geocoding service calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
)
