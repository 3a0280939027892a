// Package strategy implements the Strategy interface and registry of
// SPEC_FULL §4.5, plus the three concrete detectors (§4.6-§4.8).
package strategy

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/usealtoal/predictarb/internal/cluster"
	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/internal/orderbookcache"
	"github.com/usealtoal/predictarb/internal/ports"
	"github.com/usealtoal/predictarb/internal/solver"
)

// MarketContext is what a strategy's AppliesTo predicate inspects: the
// triggering market and whether it participates in a relation cluster.
type MarketContext struct {
	Market     *domain.Market
	HasCluster bool
}

// DetectionContext carries everything a strategy's Detect call needs: an
// immutable reference to the triggering market, the cache (queried under
// its own atomic-read discipline, never copied out), the market payout,
// and the auxiliary collaborators the combinatorial strategy needs.
type DetectionContext struct {
	Market *domain.Market
	Cache  *orderbookcache.Cache
	Payout domain.Price
	TakerFee domain.Price

	// Registry resolves any cluster member's MarketID to its Market, so
	// the combinatorial detector can price outcomes beyond the triggering
	// market. Unused by the single-market detectors.
	Registry *domain.MarketRegistry

	MinEdge   decimal.Decimal
	MinProfit decimal.Decimal

	// MaxOutcomes bounds the market-rebalancing detector (§4.7).
	MaxOutcomes int

	// Combinatorial-only collaborators.
	RelationSource ports.RelationSource
	ClusterCache   *cluster.Cache
	Solver         solver.Solver
	ClusterMaxSize int
	GapThreshold   decimal.Decimal
	MaxIterations  int
	Tolerance      decimal.Decimal
	StalenessBound int64 // nanoseconds; compared via time.Duration at call sites

	Logger *zap.Logger
}

// Strategy detects one kind of arbitrage opportunity.
type Strategy interface {
	// Name is a stable identifier used for registration ordering and logs.
	Name() string
	// AppliesTo decides whether this strategy should run for the given
	// market context.
	AppliesTo(ctx MarketContext) bool
	// Detect returns zero or more opportunities for the triggering market.
	Detect(ctx context.Context, dctx DetectionContext) ([]*domain.Opportunity, error)
	// WarmStart is invoked by the orchestrator after each detection round
	// so strategies with iterative state (Frank-Wolfe) can seed the next
	// run from the previous result. Stateless strategies no-op.
	WarmStart(previous solver.FrankWolfeResult)
}
