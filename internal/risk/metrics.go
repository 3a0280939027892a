package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FailureBreakerConsecutiveFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictarb_risk_failure_breaker_consecutive_failures",
		Help: "Current consecutive execution-failure count",
	})

	FailureBreakerTripsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_risk_failure_breaker_trips_total",
		Help: "Number of times the execution-failure circuit breaker tripped",
	})

	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictarb_risk_rejections_total",
		Help: "Number of opportunities rejected by the risk manager, by kind",
	}, []string{"kind"})

	ApprovalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_risk_approvals_total",
		Help: "Number of opportunities approved by the risk manager",
	})
)
