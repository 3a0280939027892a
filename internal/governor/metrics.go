package governor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictarb_governor_active_tokens",
		Help: "Number of tokens currently subscribed by the governor",
	})

	LatencyP99Seconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictarb_governor_latency_p99_seconds",
		Help: "Most recently computed p99 end-to-end detection latency",
	})

	ExpansionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_governor_expansions_total",
		Help: "Number of expansion actions taken by the governor",
	})

	ContractionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_governor_contractions_total",
		Help: "Number of contraction actions taken by the governor",
	})
)
