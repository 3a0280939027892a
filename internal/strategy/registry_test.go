package strategy

import (
	"context"
	"testing"

	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/internal/solver"
)

type fixedStrategy struct {
	name    string
	applies bool
	opps    []*domain.Opportunity
}

func (f fixedStrategy) Name() string                       { return f.name }
func (f fixedStrategy) AppliesTo(MarketContext) bool        { return f.applies }
func (f fixedStrategy) Detect(context.Context, DetectionContext) ([]*domain.Opportunity, error) {
	return f.opps, nil
}
func (f fixedStrategy) WarmStart(solver.FrankWolfeResult) {}

func TestRegistryDetectAllSkipsNonApplyingStrategies(t *testing.T) {
	opp := domain.NewOpportunity([]domain.MarketID{"m1"}, "s", "q", []domain.Leg{{TokenID: "a", AskPrice: dec("0.4"), AskSize: dec("1")}}, domain.DefaultPayout, dec("0.01"))

	r := NewRegistry(
		fixedStrategy{name: "a", applies: false, opps: []*domain.Opportunity{opp}},
		fixedStrategy{name: "b", applies: true, opps: []*domain.Opportunity{opp}},
	)

	out, err := r.DetectAll(context.Background(), MarketContext{}, DetectionContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 opportunity from the applying strategy only, got %d", len(out))
	}
}

func TestRegistryDetectAllDedupesAcrossStrategies(t *testing.T) {
	legs := []domain.Leg{{TokenID: "a", AskPrice: dec("0.4"), AskSize: dec("1")}}
	opp1 := domain.NewOpportunity([]domain.MarketID{"m1"}, "s", "q", legs, domain.DefaultPayout, dec("0.01"))
	opp2 := domain.NewOpportunity([]domain.MarketID{"m1"}, "s", "q", legs, domain.DefaultPayout, dec("0.01"))

	r := NewRegistry(
		fixedStrategy{name: "a", applies: true, opps: []*domain.Opportunity{opp1}},
		fixedStrategy{name: "b", applies: true, opps: []*domain.Opportunity{opp2}},
	)

	out, err := r.DetectAll(context.Background(), MarketContext{}, DetectionContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected duplicate opportunities (same market+legs) collapsed to 1, got %d", len(out))
	}
}

func TestSortByMarketIDOrdersAscending(t *testing.T) {
	in := []domain.MarketID{"c", "a", "b"}
	out := sortByMarketID(in)
	if out[0] != "a" || out[1] != "b" || out[2] != "c" {
		t.Fatalf("expected ascending order, got %v", out)
	}
	if in[0] != "c" {
		t.Fatal("expected sortByMarketID not to mutate its input")
	}
}
