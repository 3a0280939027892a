package strategy

import (
	"context"
	"sort"

	"github.com/usealtoal/predictarb/internal/domain"
)

// Registry holds the registered strategies in registration order and
// fans detection out to every strategy whose AppliesTo predicate fires,
// deduplicating the combined result before returning it to the
// orchestrator (SPEC_FULL §4.5).
type Registry struct {
	strategies []Strategy
}

// NewRegistry builds a registry from an ordered strategy list. Order is
// significant: opportunities are returned in registration order.
func NewRegistry(strategies ...Strategy) *Registry {
	return &Registry{strategies: strategies}
}

// DetectAll runs every applicable strategy against ctx, in registration
// order, then deduplicates by Opportunity.Key() before returning. Within
// one strategy's own results, order is whatever that strategy returns
// (detectors sort by ascending MarketID internally where relevant).
func (r *Registry) DetectAll(ctx context.Context, mctx MarketContext, dctx DetectionContext) ([]*domain.Opportunity, error) {
	seen := make(map[string]struct{})
	var out []*domain.Opportunity

	for _, s := range r.strategies {
		if !s.AppliesTo(mctx) {
			continue
		}
		opps, err := s.Detect(ctx, dctx)
		if err != nil {
			return out, err
		}
		for _, o := range opps {
			key := o.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, o)
		}
	}

	return out, nil
}

// sortByMarketID returns outcomes/legs sorted by ascending MarketID for
// deterministic within-strategy ordering (§4.5).
func sortByMarketID(ids []domain.MarketID) []domain.MarketID {
	out := make([]domain.MarketID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
