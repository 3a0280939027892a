package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/usealtoal/predictarb/internal/discovery"
	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/internal/orderbookcache"
	"github.com/usealtoal/predictarb/internal/strategy"
	"github.com/usealtoal/predictarb/pkg/config"
	"github.com/usealtoal/predictarb/pkg/websocket"
)

//nolint:gochecknoglobals // Cobra boilerplate
var executeArbCmd = &cobra.Command{
	Use:   "execute-arb <market-slug>",
	Short: "Execute a paper arbitrage trade on a specific market",
	Long: `Connects to a market, fetches current orderbook prices, and executes a paper
arbitrage trade if conditions are met. Useful for testing arbitrage logic.

Example:
  polymarket-arb execute-arb fed-increases-interest-rates-by-25-bps-after-january-2026-meeting`,
	Args: cobra.ExactArgs(1),
	RunE: runExecuteArb,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(executeArbCmd)
	executeArbCmd.Flags().Float64P("min-edge", "e", 0.005, "Minimum edge (payout - cost) to accept")
	executeArbCmd.Flags().Float64P("size", "s", 100.0, "Trade size in USD")
	executeArbCmd.Flags().Float64P("fee", "f", 0.01, "Taker fee (0.01 = 1%)")
}

func runExecuteArb(cmd *cobra.Command, args []string) error {
	marketSlug := args[0]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	minEdge, _ := cmd.Flags().GetFloat64("min-edge")
	tradeSize, _ := cmd.Flags().GetFloat64("size")
	takerFee, _ := cmd.Flags().GetFloat64("fee")

	fmt.Printf("=== Polymarket Arbitrage Executor (Paper Mode) ===\n\n")
	fmt.Printf("Market: %s\n", marketSlug)
	fmt.Printf("Min Edge: %.4f\n", minEdge)
	fmt.Printf("Trade Size: $%.2f\n", tradeSize)
	fmt.Printf("Taker Fee: %.2f%%\n\n", takerFee*100)

	client := discovery.NewClient(cfg.PolymarketGammaURL, logger)
	wireMarket, err := client.FetchMarketBySlug(ctx, marketSlug)
	if err != nil {
		return fmt.Errorf("fetch market: %w", err)
	}

	fmt.Printf("Question: %s\n", wireMarket.Question)
	fmt.Printf("Market ID: %s\n\n", wireMarket.ID)

	yesToken := wireMarket.GetTokenByOutcome("YES")
	noToken := wireMarket.GetTokenByOutcome("NO")
	if yesToken == nil || noToken == nil {
		return fmt.Errorf("market missing YES or NO token")
	}

	fmt.Printf("YES Token: %s\n", yesToken.TokenID)
	fmt.Printf("NO Token: %s\n\n", noToken.TokenID)

	market := &domain.Market{
		ID:       domain.MarketID(wireMarket.ID),
		Slug:     wireMarket.Slug,
		Question: wireMarket.Question,
		Outcomes: []domain.Outcome{
			{TokenID: domain.TokenID(yesToken.TokenID), Name: "YES"},
			{TokenID: domain.TokenID(noToken.TokenID), Name: "NO"},
		},
		Payout: domain.DefaultPayout,
	}

	cache := orderbookcache.New(nil)

	wsManager := websocket.New(websocket.Config{
		URL:                   cfg.PolymarketWSURL,
		DialTimeout:           cfg.WSDialTimeout,
		PongTimeout:           cfg.WSPongTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		MessageBufferSize:     cfg.WSMessageBufferSize,
		Logger:                logger,
	})

	err = wsManager.Start()
	if err != nil {
		return fmt.Errorf("start websocket: %w", err)
	}
	defer wsManager.Close()

	feed := orderbookcache.NewFeed(cache, wsManager.MessageChan(), logger)
	go feed.Run(ctx)

	tokenIDs := []string{yesToken.TokenID, noToken.TokenID}
	err = wsManager.Subscribe(ctx, tokenIDs)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	fmt.Println("Subscribed to orderbook. Waiting for prices...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	detector := strategy.NewSingleCondition()
	dctx := strategy.DetectionContext{
		Market:    market,
		Cache:     cache,
		Payout:    domain.DefaultPayout,
		TakerFee:  decimal.NewFromFloat(takerFee),
		MinEdge:   decimal.NewFromFloat(minEdge),
		MinProfit: decimal.Zero,
	}

	timeout := time.After(30 * time.Second)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutdown requested")
			return nil

		case <-timeout:
			return fmt.Errorf("timeout waiting for orderbook data")

		case <-ticker.C:
			opportunities, detectErr := detector.Detect(ctx, dctx)
			if detectErr != nil {
				continue
			}
			if len(opportunities) == 0 {
				continue
			}

			opp := opportunities[0]
			printOpportunity(opp, decimal.NewFromFloat(tradeSize))
			return nil
		}
	}
}

func printOpportunity(opp *domain.Opportunity, requestedSize decimal.Decimal) {
	fmt.Printf("✅ Arbitrage opportunity detected!\n\n")

	fmt.Println("=== Trade Execution (Paper Mode) ===")
	for _, leg := range opp.Legs {
		fmt.Printf("Buy %s at Ask: %s\n", leg.TokenID, leg.AskPrice.String())
	}
	size := opp.Volume
	if requestedSize.LessThan(size) {
		size = requestedSize
	}
	fmt.Printf("Trade Size: %s\n\n", size.String())

	fmt.Println("=== Profit Calculation ===")
	fmt.Printf("Gross Profit: %s (%d BPS)\n", opp.ExpectedProfit.String(), opp.Edge.Mul(decimal.NewFromInt(10000)).IntPart())
	fmt.Printf("Total Fees:   %s\n", opp.TotalFees.String())
	fmt.Printf("Net Profit:   %s (%d BPS)\n\n", opp.NetProfit.String(), opp.NetProfitBPS)

	if opp.NetProfit.IsNegative() || opp.NetProfit.IsZero() {
		fmt.Printf("⚠️  WARNING: Net profit is not positive after fees!\n")
		fmt.Printf("   This trade would not make money. The market spread is too narrow.\n\n")
	} else {
		fmt.Printf("✅ Profitable trade! Net profit: %s\n\n", opp.NetProfit.String())
	}

	fmt.Println("=== Breakdown ===")
	fmt.Printf("Total Cost:     %s\n", opp.TotalCost.String())
	fmt.Printf("Payout:         %s\n", opp.Payout.String())
	fmt.Printf("Edge:           %s\n\n", opp.Edge.String())
}
