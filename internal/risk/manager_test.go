package risk

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/internal/orderbookcache"
)

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

type fakeExposure struct {
	perMarket decimal.Decimal
	total     decimal.Decimal
}

func (f fakeExposure) ExposureFor(domain.MarketID) decimal.Decimal { return f.perMarket }
func (f fakeExposure) TotalExposure() decimal.Decimal              { return f.total }

func testOpportunity(t *testing.T, cache *orderbookcache.Cache) *domain.Opportunity {
	t.Helper()
	cache.Update(domain.OrderBook{
		TokenID:   "yes",
		Asks:      []domain.PriceLevel{{Price: dec("0.48"), Size: dec("100")}},
		Timestamp: time.Now(),
	})
	cache.Update(domain.OrderBook{
		TokenID:   "no",
		Asks:      []domain.PriceLevel{{Price: dec("0.48"), Size: dec("100")}},
		Timestamp: time.Now(),
	})
	legs := []domain.Leg{
		{TokenID: "yes", AskPrice: dec("0.48"), AskSize: dec("100")},
		{TokenID: "no", AskPrice: dec("0.48"), AskSize: dec("100")},
	}
	return domain.NewOpportunity([]domain.MarketID{"m1"}, "slug", "q", legs, domain.DefaultPayout, dec("0.01"))
}

func baseConfig() Config {
	return Config{
		MinEdge:              decimal.Zero,
		MinProfitThreshold:   decimal.Zero,
		MaxPositionPerMarket: dec("10000"),
		MaxTotalExposure:     dec("10000"),
		MaxSlippage:          dec("0.05"),
	}
}

func TestManagerApprovesHealthyOpportunity(t *testing.T) {
	cache := orderbookcache.New(nil)
	opp := testOpportunity(t, cache)

	m := New(baseConfig(), cache, fakeExposure{}, nil, nil, nil, zap.NewNop())

	d := m.Check(context.Background(), opp)
	if !d.Approved {
		t.Fatalf("expected approval, got rejection: %s (%s)", d.Kind, d.Reason)
	}
}

func TestManagerRejectsEdgeTooSmall(t *testing.T) {
	cache := orderbookcache.New(nil)
	opp := testOpportunity(t, cache)

	cfg := baseConfig()
	cfg.MinEdge = dec("1")

	m := New(cfg, cache, fakeExposure{}, nil, nil, nil, zap.NewNop())
	d := m.Check(context.Background(), opp)
	if d.Approved || d.Kind != EdgeTooSmall {
		t.Fatalf("expected EdgeTooSmall rejection, got %+v", d)
	}
}

func TestManagerRejectsPositionLimit(t *testing.T) {
	cache := orderbookcache.New(nil)
	opp := testOpportunity(t, cache)

	cfg := baseConfig()
	cfg.MaxPositionPerMarket = dec("1")

	m := New(cfg, cache, fakeExposure{}, nil, nil, nil, zap.NewNop())
	d := m.Check(context.Background(), opp)
	if d.Approved || d.Kind != PositionLimit {
		t.Fatalf("expected PositionLimit rejection, got %+v", d)
	}
}

func TestManagerRejectsExposureLimit(t *testing.T) {
	cache := orderbookcache.New(nil)
	opp := testOpportunity(t, cache)

	cfg := baseConfig()
	cfg.MaxTotalExposure = dec("1")

	m := New(cfg, cache, fakeExposure{total: dec("0.5")}, nil, nil, nil, zap.NewNop())
	d := m.Check(context.Background(), opp)
	if d.Approved || d.Kind != ExposureLimit {
		t.Fatalf("expected ExposureLimit rejection, got %+v", d)
	}
}

func TestManagerRejectsSlippage(t *testing.T) {
	cache := orderbookcache.New(nil)
	opp := testOpportunity(t, cache)

	// Move the live ask for "yes" far from the detected price.
	cache.Update(domain.OrderBook{
		TokenID:   "yes",
		Asks:      []domain.PriceLevel{{Price: dec("0.90"), Size: dec("100")}},
		Timestamp: time.Now().Add(time.Second),
	})

	m := New(baseConfig(), cache, fakeExposure{}, nil, nil, nil, zap.NewNop())
	d := m.Check(context.Background(), opp)
	if d.Approved || d.Kind != Slippage {
		t.Fatalf("expected Slippage rejection, got %+v", d)
	}
}

func TestManagerRejectsWhenExecutionBreakerTripped(t *testing.T) {
	cache := orderbookcache.New(nil)
	opp := testOpportunity(t, cache)

	breaker := NewFailureBreaker(1, time.Hour, zap.NewNop())
	breaker.RecordFailure()

	m := New(baseConfig(), cache, fakeExposure{}, breaker, nil, nil, zap.NewNop())
	d := m.Check(context.Background(), opp)
	if d.Approved || d.Kind != CircuitBreaker {
		t.Fatalf("expected CircuitBreaker rejection, got %+v", d)
	}
}

type fakeBalanceBreaker struct{ enabled bool }

func (f fakeBalanceBreaker) IsEnabled() bool { return f.enabled }

func TestManagerRejectsWhenBalanceBreakerDisabled(t *testing.T) {
	cache := orderbookcache.New(nil)
	opp := testOpportunity(t, cache)

	m := New(baseConfig(), cache, fakeExposure{}, nil, fakeBalanceBreaker{enabled: false}, nil, zap.NewNop())
	d := m.Check(context.Background(), opp)
	if d.Approved || d.Kind != CircuitBreaker {
		t.Fatalf("expected CircuitBreaker rejection, got %+v", d)
	}
}
