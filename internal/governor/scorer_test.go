package governor

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/usealtoal/predictarb/internal/domain"
)

type staticVolumes map[domain.TokenID]decimal.Decimal

func (s staticVolumes) Volume24hr(token domain.TokenID) decimal.Decimal {
	return s[token]
}

func TestVolumeScorerScoresByVolume(t *testing.T) {
	volumes := staticVolumes{
		"a": decimal.NewFromInt(100),
		"b": decimal.NewFromInt(200),
	}
	scorer := NewVolumeScorer(volumes)

	scores := scorer.Score(context.Background(), []domain.TokenID{"a", "b"})
	if !scores["a"].Equal(decimal.NewFromInt(100)) || !scores["b"].Equal(decimal.NewFromInt(200)) {
		t.Fatalf("unexpected scores: %+v", scores)
	}
}

func TestRankDescendingOrdersByScoreThenTokenID(t *testing.T) {
	tokens := []domain.TokenID{"z", "a", "m"}
	scores := map[domain.TokenID]decimal.Decimal{
		"z": decimal.NewFromInt(10),
		"a": decimal.NewFromInt(10),
		"m": decimal.NewFromInt(20),
	}
	ranked := rankDescending(tokens, scores)
	if ranked[0] != "m" {
		t.Fatalf("expected highest score first, got %v", ranked)
	}
	if ranked[1] != "a" || ranked[2] != "z" {
		t.Fatalf("expected tie broken by ascending TokenID, got %v", ranked)
	}
}

func TestRankAscendingOrdersByScoreThenTokenID(t *testing.T) {
	tokens := []domain.TokenID{"z", "a", "m"}
	scores := map[domain.TokenID]decimal.Decimal{
		"z": decimal.NewFromInt(10),
		"a": decimal.NewFromInt(10),
		"m": decimal.NewFromInt(5),
	}
	ranked := rankAscending(tokens, scores)
	if ranked[0] != "m" {
		t.Fatalf("expected lowest score first, got %v", ranked)
	}
	if ranked[1] != "a" || ranked[2] != "z" {
		t.Fatalf("expected tie broken by ascending TokenID, got %v", ranked)
	}
}
