package governor

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/usealtoal/predictarb/internal/domain"
)

// MarketScorer ranks candidate tokens by projected opportunity density, per
// §4.4's token-selection collaborator. Higher scores are preferred for
// expansion; lower scores are preferred for contraction.
type MarketScorer interface {
	Score(ctx context.Context, tokens []domain.TokenID) map[domain.TokenID]decimal.Decimal
}

// VolumeSource supplies the 24h trading volume the default scorer ranks
// on, grounded on the teacher's discovery.poll() sort by Volume24hr
// descending (internal/discovery/discovery.go).
type VolumeSource interface {
	Volume24hr(token domain.TokenID) decimal.Decimal
}

// VolumeScorer is the default MarketScorer: it ranks tokens by their 24h
// volume, the same signal the teacher's discovery loop already uses to
// prioritize markets worth tracking.
type VolumeScorer struct {
	Volumes VolumeSource
}

// NewVolumeScorer builds the default scorer.
func NewVolumeScorer(volumes VolumeSource) *VolumeScorer {
	return &VolumeScorer{Volumes: volumes}
}

func (s *VolumeScorer) Score(_ context.Context, tokens []domain.TokenID) map[domain.TokenID]decimal.Decimal {
	out := make(map[domain.TokenID]decimal.Decimal, len(tokens))
	for _, t := range tokens {
		out[t] = s.Volumes.Volume24hr(t)
	}
	return out
}

// rankDescending sorts tokens by score descending, breaking ties by
// ascending TokenID for determinism (§4.4).
func rankDescending(tokens []domain.TokenID, scores map[domain.TokenID]decimal.Decimal) []domain.TokenID {
	out := make([]domain.TokenID, len(tokens))
	copy(out, tokens)
	sort.Slice(out, func(i, j int) bool {
		si, sj := scores[out[i]], scores[out[j]]
		if !si.Equal(sj) {
			return si.GreaterThan(sj)
		}
		return out[i] < out[j]
	})
	return out
}

// rankAscending sorts tokens by score ascending (lowest density first,
// i.e. best contraction candidates), breaking ties by ascending TokenID.
func rankAscending(tokens []domain.TokenID, scores map[domain.TokenID]decimal.Decimal) []domain.TokenID {
	out := make([]domain.TokenID, len(tokens))
	copy(out, tokens)
	sort.Slice(out, func(i, j int) bool {
		si, sj := scores[out[i]], scores[out[j]]
		if !si.Equal(sj) {
			return si.LessThan(sj)
		}
		return out[i] < out[j]
	})
	return out
}
