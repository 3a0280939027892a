package strategy

import (
	"context"

	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/internal/solver"
)

// MarketRebalancing is the N-outcome sum detector of SPEC_FULL §4.7,
// grounded on the teacher's detectMultiOutcome (internal/arbitrage/
// detector.go): validate every outcome has an ask, sum them, size by the
// minimum ask size across outcomes, all-or-nothing.
type MarketRebalancing struct{}

// NewMarketRebalancing builds the N-outcome detector.
func NewMarketRebalancing() *MarketRebalancing { return &MarketRebalancing{} }

func (d *MarketRebalancing) Name() string { return "market_rebalancing" }

// AppliesTo fires on markets with 3..MaxOutcomes outcomes. The bound
// itself lives on the DetectionContext (config-driven), so AppliesTo only
// checks the lower bound here; Detect re-checks the upper bound against
// the context it's actually given.
func (d *MarketRebalancing) AppliesTo(ctx MarketContext) bool {
	return len(ctx.Market.Outcomes) >= 3
}

// Detect fetches every outcome's book with a single atomic GetMany read
// and requires an ask on every outcome (all-or-nothing); otherwise
// identical arithmetic to the binary detector.
func (d *MarketRebalancing) Detect(ctx context.Context, dctx DetectionContext) ([]*domain.Opportunity, error) {
	m := dctx.Market
	if len(m.Outcomes) > dctx.MaxOutcomes {
		return nil, nil
	}

	tokens := m.TokenIDs()
	results := dctx.Cache.GetMany(tokens)

	legs := make([]domain.Leg, 0, len(tokens))
	for i, r := range results {
		if !r.Ok || r.Book.Crossed() {
			return nil, nil
		}
		ask, ok := r.Book.BestAsk()
		if !ok || !ask.Price.IsPositive() {
			return nil, nil
		}
		legs = append(legs, domain.Leg{TokenID: tokens[i], AskPrice: ask.Price, AskSize: ask.Size})
	}

	opp := domain.NewOpportunity([]domain.MarketID{m.ID}, m.Slug, m.Question, legs, dctx.Payout, dctx.TakerFee)

	if opp.Edge.LessThan(dctx.MinEdge) {
		return nil, nil
	}
	if opp.ExpectedProfit.LessThan(dctx.MinProfit) {
		return nil, nil
	}

	return []*domain.Opportunity{opp}, nil
}

// WarmStart is a no-op: this strategy is stateless.
func (d *MarketRebalancing) WarmStart(solver.FrankWolfeResult) {}
