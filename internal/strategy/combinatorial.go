package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/usealtoal/predictarb/internal/cluster"
	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/internal/solver"
)

// combinatorialEpsilon is the "buy candidate" margin of §4.8 step 5:
// legs are the outcomes for which mu*_i > theta_i + epsilon.
var combinatorialEpsilon = decimal.New(1, -6)

// Combinatorial is the cluster-constrained detector of SPEC_FULL §4.8.
// It has no teacher precedent (the reference repo has no cluster/relation
// concept at all); it is built fresh in the idiom of the other two
// detectors, calling into internal/solver for the Frank-Wolfe projection.
type Combinatorial struct {
	// lastResult holds the most recent projection per cluster, keyed by
	// cluster.ID. It is recorded only; compute does not read it back.
	lastResult map[cluster.ID]solver.FrankWolfeResult
}

// NewCombinatorial builds the cluster detector.
func NewCombinatorial() *Combinatorial {
	return &Combinatorial{lastResult: make(map[cluster.ID]solver.FrankWolfeResult)}
}

func (d *Combinatorial) Name() string { return "combinatorial" }

// AppliesTo fires only when the market participates in a relation
// cluster, per §4.8's opening condition.
func (d *Combinatorial) AppliesTo(ctx MarketContext) bool {
	return ctx.HasCluster
}

// Detect implements the five-step process of §4.8: identify the cluster
// via bounded BFS, collect mid prices, encode Relations as linear
// constraints, project via Frank-Wolfe, and emit an opportunity if the
// resulting gap clears GapThreshold.
func (d *Combinatorial) Detect(ctx context.Context, dctx DetectionContext) ([]*domain.Opportunity, error) {
	relations, err := dctx.RelationSource.RelationsFor(ctx, dctx.Market.ID)
	if err != nil || len(relations) == 0 {
		return nil, nil
	}

	members, touching, ok := cluster.Discover(dctx.Market.ID, relations, dctx.ClusterMaxSize)
	if !ok {
		dctx.Logger.Warn("cluster-exceeds-max-size", zap.String("market-id", dctx.Market.ID.String()))
		return nil, nil
	}
	members = sortByMarketID(members)

	clusterID := cluster.BuildID(members)

	stalenessBound := time.Duration(dctx.StalenessBound)
	if stalenessBound <= 0 {
		stalenessBound = 250 * time.Millisecond
	}

	result, fresh := dctx.ClusterCache.Fresh(clusterID, stalenessBound)
	if !fresh {
		computed, computeOk := d.compute(dctx, members, touching)
		if !computeOk {
			return nil, nil
		}
		result = cluster.Result{Projection: computed}
		dctx.ClusterCache.Set(clusterID, computed)
		d.lastResult[clusterID] = computed
	}

	if !result.Projection.Converged && len(result.Projection.Mu) == 0 {
		return nil, nil
	}

	if result.Projection.Gap.LessThanOrEqual(dctx.GapThreshold) {
		return nil, nil
	}

	return d.buildOpportunity(dctx, members, result.Projection)
}

// compute runs the Frank-Wolfe projection for a freshly discovered
// cluster: collects mid prices, builds the linear constraint set from the
// touching relations, and calls solver.ProjectKL.
func (d *Combinatorial) compute(dctx DetectionContext, members []domain.MarketID, relations []domain.Relation) (solver.FrankWolfeResult, bool) {
	index := make(map[domain.MarketID]int, len(members))
	for i, m := range members {
		index[m] = i
	}

	theta := make([]decimal.Decimal, len(members))
	for i, id := range members {
		mid, _, ok := d.resolve(dctx, id)
		if !ok {
			return solver.FrankWolfeResult{}, false
		}
		theta[i] = mid
	}

	constraints := encodeConstraints(relations, index)
	bounds := make([]solver.VariableBounds, len(members))
	for i := range bounds {
		bounds[i] = solver.VariableBounds{Lower: decimal.Zero, Upper: decimal.NewFromInt(1)}
	}

	result := solver.ProjectKL(theta, constraints, bounds, dctx.Solver, dctx.MaxIterations, dctx.Tolerance)
	return result, true
}

// resolve looks up a cluster member market by id (via Registry, falling
// back to the triggering market itself when it IS the triggering market,
// since that one is always guaranteed present even on a cold registry in
// tests), then returns the mid price of its representative token (its
// first outcome — the convention this module uses for single-scalar
// cluster projection) plus that token's current book.
func (d *Combinatorial) resolve(dctx DetectionContext, marketID domain.MarketID) (decimal.Decimal, domain.OrderBook, bool) {
	market := dctx.Market
	if marketID != dctx.Market.ID {
		if dctx.Registry == nil {
			return decimal.Zero, domain.OrderBook{}, false
		}
		m, ok := dctx.Registry.Get(marketID)
		if !ok || len(m.Outcomes) == 0 {
			return decimal.Zero, domain.OrderBook{}, false
		}
		market = m
	}
	if len(market.Outcomes) == 0 {
		return decimal.Zero, domain.OrderBook{}, false
	}

	token := market.Outcomes[0].TokenID
	book, ok := dctx.Cache.Get(token)
	if !ok {
		return decimal.Zero, domain.OrderBook{}, false
	}

	bid, okBid := book.BestBid()
	ask, okAsk := book.BestAsk()
	switch {
	case okBid && okAsk:
		return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)), book, true
	case okAsk:
		return ask.Price, book, true
	default:
		return decimal.Zero, domain.OrderBook{}, false
	}
}

func encodeConstraints(relations []domain.Relation, index map[domain.MarketID]int) []solver.Constraint {
	var constraints []solver.Constraint
	for _, rel := range relations {
		switch rel.Kind {
		case domain.MutuallyExclusive:
			constraints = append(constraints, sumConstraint(rel.Markets, index, solver.LE, decimal.NewFromInt(1)))
		case domain.ExactlyOne:
			constraints = append(constraints, sumConstraint(rel.Markets, index, solver.EQ, decimal.NewFromInt(1)))
		case domain.Implies:
			coeffs := make([]decimal.Decimal, len(index))
			for i := range coeffs {
				coeffs[i] = decimal.Zero
			}
			if a, ok := index[rel.A]; ok {
				coeffs[a] = decimal.NewFromInt(1)
			}
			if b, ok := index[rel.B]; ok {
				coeffs[b] = decimal.NewFromInt(-1)
			}
			constraints = append(constraints, solver.Constraint{Coeffs: coeffs, Sense: solver.LE, RHS: decimal.Zero})
		}
	}
	return constraints
}

func sumConstraint(members []domain.MarketID, index map[domain.MarketID]int, sense solver.Sense, rhs decimal.Decimal) solver.Constraint {
	coeffs := make([]decimal.Decimal, len(index))
	for i := range coeffs {
		coeffs[i] = decimal.Zero
	}
	for _, m := range members {
		if i, ok := index[m]; ok {
			coeffs[i] = decimal.NewFromInt(1)
		}
	}
	return solver.Constraint{Coeffs: coeffs, Sense: sense, RHS: rhs}
}

// buildOpportunity sizes the projected gap by the smallest per-token ask
// liquidity across the cluster's buy candidates (mu*_i > theta_i + eps).
// The resulting opportunity spans every market contributing a leg, not
// just the triggering one.
func (d *Combinatorial) buildOpportunity(dctx DetectionContext, members []domain.MarketID, result solver.FrankWolfeResult) ([]*domain.Opportunity, error) {
	var legs []domain.Leg
	var marketIDs []domain.MarketID

	for i, id := range members {
		if i >= len(result.Mu) {
			continue
		}
		theta, book, ok := d.resolve(dctx, id)
		if !ok {
			continue
		}
		if result.Mu[i].LessThanOrEqual(theta.Add(combinatorialEpsilon)) {
			continue
		}
		ask, okAsk := book.BestAsk()
		if !okAsk {
			continue
		}
		legs = append(legs, domain.Leg{TokenID: book.TokenID, AskPrice: ask.Price, AskSize: ask.Size})
		marketIDs = append(marketIDs, id)
	}

	if len(legs) == 0 {
		return nil, nil
	}

	opp := domain.NewOpportunity(marketIDs, dctx.Market.Slug, dctx.Market.Question, legs, dctx.Payout, dctx.TakerFee)
	return []*domain.Opportunity{opp}, nil
}

// WarmStart is the §4.5 warm_start hook. It is a no-op: no Frank-Wolfe run
// is seeded from a previous result.
func (d *Combinatorial) WarmStart(previous solver.FrankWolfeResult) {
	// Detect records each cluster's latest projection in lastResult, but
	// compute always calls solver.ProjectKL without a starting point, so
	// every projection starts cold.
}
