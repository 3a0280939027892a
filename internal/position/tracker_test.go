package position

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/usealtoal/predictarb/internal/domain"
)

func newPosition(id domain.PositionID, marketID domain.MarketID, tokenID domain.TokenID, cost string) *domain.Position {
	return &domain.Position{
		ID:        id,
		MarketIDs: []domain.MarketID{marketID},
		Legs:      []domain.PositionLeg{{TokenID: tokenID, Filled: true}},
		EntryCost: decimal.RequireFromString(cost),
		Status:    domain.StatusOpen,
	}
}

func TestTrackerNextIDIsMonotonic(t *testing.T) {
	tr := NewTracker()
	a := tr.NextID()
	b := tr.NextID()
	if b <= a {
		t.Fatalf("expected monotonically increasing IDs, got %v then %v", a, b)
	}
}

func TestTrackerAddAndOpenPositions(t *testing.T) {
	tr := NewTracker()
	p := newPosition(1, "m1", "yes", "10")
	tr.Add(p)

	open := tr.OpenPositions()
	if len(open) != 1 {
		t.Fatalf("expected 1 open position, got %d", len(open))
	}
	if open[0].ID != 1 {
		t.Fatalf("expected position ID 1, got %v", open[0].ID)
	}
}

func TestTrackerCloseExcludesFromOpenPositionsAndExposure(t *testing.T) {
	tr := NewTracker()
	p := newPosition(1, "m1", "yes", "10")
	tr.Add(p)

	tr.Close(1, decimal.RequireFromString("2"))

	if len(tr.OpenPositions()) != 0 {
		t.Fatal("expected no open positions after Close")
	}
	if !tr.TotalExposure().Equal(decimal.Zero) {
		t.Fatalf("expected zero exposure after Close, got %s", tr.TotalExposure())
	}
}

func TestTrackerRecordPartialSetsStatusAndLegs(t *testing.T) {
	tr := NewTracker()
	p := newPosition(1, "m1", "yes", "10")
	tr.Add(p)

	tr.RecordPartial(1, "yes", "no")

	open := tr.OpenPositions()
	if len(open) != 1 {
		t.Fatalf("expected the partial position to remain in OpenPositions, got %d", len(open))
	}
	if open[0].Status != domain.StatusPartialFill {
		t.Fatalf("expected StatusPartialFill, got %v", open[0].Status)
	}
	if open[0].FilledLeg != "yes" || open[0].MissingLeg != "no" {
		t.Fatalf("expected filled/missing legs recorded, got %+v", open[0])
	}
}

func TestTrackerTotalExposureSumsAcrossOpenPositions(t *testing.T) {
	tr := NewTracker()
	tr.Add(newPosition(1, "m1", "yes", "10"))
	tr.Add(newPosition(2, "m2", "no", "5"))

	total := tr.TotalExposure()
	if !total.Equal(decimal.RequireFromString("15")) {
		t.Fatalf("expected total exposure 15, got %s", total)
	}
}

func TestTrackerExposureForFiltersByMarket(t *testing.T) {
	tr := NewTracker()
	tr.Add(newPosition(1, "m1", "yes", "10"))
	tr.Add(newPosition(2, "m2", "no", "5"))

	if got := tr.ExposureFor("m1"); !got.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected exposure 10 for m1, got %s", got)
	}
	if got := tr.ExposureFor("m3"); !got.Equal(decimal.Zero) {
		t.Fatalf("expected zero exposure for an untracked market, got %s", got)
	}
}

func TestTrackerOpenTokensDedupesAndExcludesClosed(t *testing.T) {
	tr := NewTracker()
	tr.Add(newPosition(1, "m1", "yes", "10"))
	tr.Add(newPosition(2, "m2", "yes", "5"))
	tr.Add(newPosition(3, "m3", "no", "3"))
	tr.Close(3, decimal.Zero)

	tokens := tr.OpenTokens()
	if len(tokens) != 1 || tokens[0] != "yes" {
		t.Fatalf("expected only deduped 'yes' token from open positions, got %v", tokens)
	}
}
