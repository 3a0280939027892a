package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesReceived tracks opportunities handed to the executor.
	OpportunitiesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_execution_opportunities_received_total",
		Help: "Total number of arbitrage opportunities received for execution",
	})

	// OpportunitiesExecuted tracks opportunities where every leg succeeded.
	OpportunitiesExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_execution_opportunities_executed_total",
		Help: "Total number of opportunities where every leg executed successfully",
	})

	// OpportunitiesSkippedTotal tracks opportunities skipped before dispatch.
	OpportunitiesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictarb_execution_opportunities_skipped_total",
			Help: "Total number of opportunities skipped before dispatch (by reason)",
		},
		[]string{"reason"},
	)

	// PartialFillsTotal tracks trades where some legs succeeded and some failed.
	PartialFillsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictarb_execution_partial_fills_total",
			Help: "Total number of partial-fill outcomes, by reconciliation result",
		},
		[]string{"reconciliation"},
	)

	// ExecutionDurationSeconds tracks end-to-end execution latency.
	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictarb_execution_duration_seconds",
		Help:    "Duration of ExecuteArbitrage calls",
		Buckets: prometheus.DefBuckets,
	})

	// ExecutionErrorsTotal tracks executions where every leg failed.
	ExecutionErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_execution_errors_total",
		Help: "Total number of executions where every leg failed",
	})

	// ExecutionErrorsByType tracks leg submission failures by classified error type.
	ExecutionErrorsByType = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictarb_execution_errors_by_type_total",
			Help: "Total number of leg submission errors classified by type",
		},
		[]string{"error_type"},
	)

	// ProfitRealizedUSD tracks cumulative realized profit.
	ProfitRealizedUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictarb_execution_profit_realized_usd",
			Help: "Cumulative profit realized (paper or live)",
		},
		[]string{"mode"},
	)

	// TradesTotal tracks per-leg trade executions.
	TradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictarb_execution_trades_total",
			Help: "Total number of leg trades executed",
		},
		[]string{"mode"},
	)

	// CancelsTotal tracks leg cancel attempts during partial-fill reconciliation.
	CancelsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictarb_execution_cancels_total",
			Help: "Total number of leg cancel attempts, by result",
		},
		[]string{"result"},
	)

	// FillVerificationTotal tracks fill verification attempts by result.
	FillVerificationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictarb_execution_fill_verification_total",
			Help: "Total fill verification attempts by result (success, partial, error)",
		},
		[]string{"result"},
	)

	// FillVerificationDurationSeconds tracks fill verification duration.
	FillVerificationDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictarb_execution_fill_verification_duration_seconds",
		Help:    "Duration of the fill verification process",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60},
	})
)
