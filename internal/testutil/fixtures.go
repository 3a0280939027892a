package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/pkg/types"
)

// CreateTestMarket creates a test market with YES and NO tokens.
func CreateTestMarket(id string, slug string, question string) *types.Market {
	return &types.Market{
		ID:          id,
		Slug:        slug,
		Question:    question,
		Closed:      false,
		Active:      true,
		Outcomes:    `["Yes", "No"]`,              // API format
		ClobTokens:  `["` + id + `-yes", "` + id + `-no"]`, // API format
		Tokens: []types.Token{
			{TokenID: id + "-yes", Outcome: "Yes", Price: 0.52},
			{TokenID: id + "-no", Outcome: "No", Price: 0.48},
		},
		CreatedAt:   time.Now(),
		Description: "Test market: " + question,
	}
}

// CreateTestOrderbookMessage creates a test orderbook message.
func CreateTestOrderbookMessage(eventType string, assetID string, marketID string) *types.OrderbookMessage {
	return &types.OrderbookMessage{
		EventType: eventType,
		Market:    marketID,
		AssetID:   assetID,
		Timestamp: time.Now().Unix(),
		Bids: []types.PriceLevel{
			{Price: "0.52", Size: "100.0"},
			{Price: "0.51", Size: "50.0"},
		},
		Asks: []types.PriceLevel{
			{Price: "0.53", Size: "100.0"},
			{Price: "0.54", Size: "50.0"},
		},
	}
}

// CreateTestBookMessage creates a "book" type orderbook message.
func CreateTestBookMessage(assetID string, marketID string) *types.OrderbookMessage {
	return CreateTestOrderbookMessage("book", assetID, marketID)
}

// CreateTestPriceChangeMessage creates a "price_change" type orderbook message.
func CreateTestPriceChangeMessage(assetID string, marketID string) *types.OrderbookMessage {
	return CreateTestOrderbookMessage("price_change", assetID, marketID)
}

// CreateTestOpportunity creates a test binary arbitrage opportunity.
func CreateTestOpportunity(marketID string, marketSlug string) *domain.Opportunity {
	legs := []domain.Leg{
		{TokenID: domain.TokenID("test-yes-token-" + marketID), AskPrice: decimal.NewFromFloat(0.48), AskSize: decimal.NewFromFloat(100.0)},
		{TokenID: domain.TokenID("test-no-token-" + marketID), AskPrice: decimal.NewFromFloat(0.51), AskSize: decimal.NewFromFloat(100.0)},
	}

	return domain.NewOpportunity(
		[]domain.MarketID{domain.MarketID(marketID)},
		marketSlug,
		"Test market: "+marketSlug,
		legs,
		domain.DefaultPayout,
		decimal.NewFromFloat(0.01),
	)
}

// CreateMarketsResponse creates a test markets response from Gamma API.
func CreateMarketsResponse(markets ...*types.Market) *types.MarketsResponse {
	data := make([]types.Market, len(markets))
	for i, m := range markets {
		data[i] = *m
	}

	return &types.MarketsResponse{
		Data:   data,
		Count:  len(markets),
		Limit:  50,
		Offset: 0,
	}
}
