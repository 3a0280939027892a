package storage

import (
	"context"
	"fmt"

	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/internal/ports"
	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// Record pretty-prints an opportunity or position record to console.
func (c *ConsoleStorage) Record(ctx context.Context, record ports.StatsRecord) error {
	switch record.Kind {
	case ports.OpportunityRecorded:
		return c.printOpportunity(record.Opportunity)
	case ports.TradeOpened, ports.TradeClosed:
		return c.printPosition(record)
	default:
		return nil
	}
}

func (c *ConsoleStorage) printOpportunity(opp *domain.Opportunity) error {
	if opp == nil {
		return nil
	}

	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ARBITRAGE OPPORTUNITY DETECTED\n")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ID:       %s\n", opp.ID)
	fmt.Printf("Market:   %s\n", opp.MarketSlug)
	fmt.Printf("Question: %s\n", opp.MarketQuestion)
	fmt.Printf("Time:     %s\n", opp.DetectedAt.Format("2006-01-02 15:04:05"))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("LEGS (%d)\n", len(opp.Legs))

	for _, leg := range opp.Legs {
		fmt.Printf("  %-25s %s @ %s size\n", leg.TokenID.String()+":", leg.AskPrice.String(), leg.AskSize.String())
	}

	fmt.Printf("  ───────────────────────────────\n")
	fmt.Printf("  Total Cost:     %s  Payout: %s\n", opp.TotalCost.String(), opp.Payout.String())
	fmt.Printf("  Edge:           %s\n", opp.Edge.String())

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("PROFIT ANALYSIS\n")
	fmt.Printf("  Volume:          %s\n", opp.Volume.String())
	fmt.Printf("  Gross Profit:    %s\n", opp.ExpectedProfit.String())
	fmt.Printf("  Fees:            %s\n", opp.TotalFees.String())
	fmt.Printf("  Net Profit:      %s (%d bps)\n", opp.NetProfit.String(), opp.NetProfitBPS)
	if opp.NetProfit.IsPositive() {
		fmt.Printf("  PROFITABLE after fees\n")
	} else {
		fmt.Printf("  NOT profitable after fees\n")
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

func (c *ConsoleStorage) printPosition(record ports.StatsRecord) error {
	p := record.Position
	if p == nil {
		return nil
	}

	action := "opened"
	if record.Kind == ports.TradeClosed {
		action = "closed"
	}

	c.logger.Info("position-"+action,
		zap.Int64("position-id", int64(p.ID)),
		zap.String("entry-cost", p.EntryCost.String()),
		zap.Int("status", int(p.Status)))

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
