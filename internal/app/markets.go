package app

import (
	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/pkg/types"
	"go.uber.org/zap"
)

// handleNewMarkets subscribes to new markets as they are discovered and
// registers them into the domain market registry the strategy registry
// detects against.
func (a *App) handleNewMarkets() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case market, ok := <-a.discoveryService.NewMarketsChan():
			if !ok {
				return
			}

			a.registerMarket(market)
			a.subscribeToMarket(market)
		}
	}
}

// registerMarket translates the wire-level discovered market into the
// domain.Market shape the strategy registry detects against, preserving
// token order as returned by discovery.
func (a *App) registerMarket(market *types.Market) {
	if len(market.Tokens) == 0 {
		a.logger.Warn("market-missing-tokens",
			zap.String("market-id", market.ID),
			zap.String("slug", market.Slug))
		return
	}

	outcomes := make([]domain.Outcome, 0, len(market.Tokens))
	for _, tok := range market.Tokens {
		outcomes = append(outcomes, domain.Outcome{TokenID: domain.TokenID(tok.TokenID), Name: tok.Outcome})
	}

	domainMarket := &domain.Market{
		ID:       domain.MarketID(market.ID),
		Slug:     market.Slug,
		Question: market.Question,
		Outcomes: outcomes,
		Payout:   domain.DefaultPayout,
		EndDate:  market.EndDate,
	}

	a.marketRegistry.Add(domainMarket)
}

func (a *App) subscribeToMarket(market *types.Market) {
	// Get YES and NO token IDs
	yesToken := market.GetTokenByOutcome("YES")
	noToken := market.GetTokenByOutcome("NO")

	if yesToken == nil || noToken == nil {
		a.logger.Warn("market-missing-tokens",
			zap.String("market-id", market.ID),
			zap.String("slug", market.Slug))
		return
	}

	// Subscribe to both tokens
	tokenIDs := []string{yesToken.TokenID, noToken.TokenID}
	err := a.wsPool.Subscribe(a.ctx, tokenIDs)
	if err != nil {
		a.logger.Error("subscribe-failed",
			zap.String("market-id", market.ID),
			zap.String("slug", market.Slug),
			zap.Error(err))
		return
	}

	a.logger.Info("subscribed-to-market",
		zap.String("slug", market.Slug),
		zap.String("question", market.Question))
}
