package strategy

import (
	"context"

	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/internal/solver"
)

// SingleCondition is the binary-sum detector of SPEC_FULL §4.6, grounded
// on the teacher's legacy two-outcome path in
// internal/arbitrage/detector.go (detect()) and opportunity.go's
// NewOpportunity, generalized to the shared Leg/Opportunity shape.
type SingleCondition struct{}

// NewSingleCondition builds the binary detector.
func NewSingleCondition() *SingleCondition { return &SingleCondition{} }

func (d *SingleCondition) Name() string { return "single_condition" }

// AppliesTo fires only on exactly-two-outcome markets.
func (d *SingleCondition) AppliesTo(ctx MarketContext) bool {
	return ctx.Market.Binary()
}

// Detect fetches both outcome books atomically via GetPair and applies
// the formula of §4.6: cost = ask0.price + ask1.price, edge = payout -
// cost, volume = min(size0, size1), profit = edge * volume. Rejects on a
// missing ask, a non-positive ask price, or a crossed book.
func (d *SingleCondition) Detect(ctx context.Context, dctx DetectionContext) ([]*domain.Opportunity, error) {
	m := dctx.Market
	tokenA, tokenB := m.Outcomes[0].TokenID, m.Outcomes[1].TokenID

	bookA, okA, bookB, okB := dctx.Cache.GetPair(tokenA, tokenB)
	if !okA || !okB {
		return nil, nil
	}
	if bookA.Crossed() || bookB.Crossed() {
		return nil, nil
	}

	askA, okAskA := bookA.BestAsk()
	askB, okAskB := bookB.BestAsk()
	if !okAskA || !okAskB {
		return nil, nil
	}
	if !askA.Price.IsPositive() || !askB.Price.IsPositive() {
		return nil, nil
	}

	legs := []domain.Leg{
		{TokenID: tokenA, AskPrice: askA.Price, AskSize: askA.Size},
		{TokenID: tokenB, AskPrice: askB.Price, AskSize: askB.Size},
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
func (d *SingleCondition) WarmStart(solver.FrankWolfeResult) {}
