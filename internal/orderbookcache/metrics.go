package orderbookcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics, one per package, registered via promauto exactly as
// the teacher's internal/orderbook/metrics.go does.
var (
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictarb_orderbookcache_updates_total",
		Help: "Order book updates applied to the cache, by outcome.",
	}, []string{"outcome"})

	UpdatesDroppedStaleTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_orderbookcache_updates_dropped_stale_total",
		Help: "Updates discarded for arriving with a non-newer timestamp.",
	})

	BooksTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictarb_orderbookcache_books_tracked",
		Help: "Number of tokens currently tracked in the order book cache.",
	})
)
