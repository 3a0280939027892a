package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/usealtoal/predictarb/internal/ports"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Test connection
	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// Record persists an opportunity or position record to PostgreSQL.
// NOTE: Postgres schema needs migration to support multi-outcome markets
// properly; this predates the switch to domain.Opportunity and is kept
// unchanged, now fed from the first two legs instead of the first two
// outcomes.
// TODO: Migrate schema to support N outcomes with JSONB column.
func (p *PostgresStorage) Record(ctx context.Context, record ports.StatsRecord) error {
	if record.Kind != ports.OpportunityRecorded || record.Opportunity == nil {
		return nil
	}
	opp := record.Opportunity

	var firstPrice, secondPrice, firstSize, secondSize float64
	if len(opp.Legs) >= 2 {
		firstPrice, _ = opp.Legs[0].AskPrice.Float64()
		firstSize, _ = opp.Legs[0].AskSize.Float64()
		secondPrice, _ = opp.Legs[1].AskPrice.Float64()
		secondSize, _ = opp.Legs[1].AskSize.Float64()
	}

	totalCost, _ := opp.TotalCost.Float64()
	estimatedProfit, _ := opp.ExpectedProfit.Float64()
	maxTradeSize, _ := opp.Volume.Float64()
	totalFees, _ := opp.TotalFees.Float64()
	netProfit, _ := opp.NetProfit.Float64()

	var marketID string
	if len(opp.MarketIDs) > 0 {
		marketID = opp.MarketIDs[0].String()
	}

	query := `
		INSERT INTO arbitrage_opportunities (
			id, market_id, market_slug, market_question, detected_at,
			yes_bid_price, yes_bid_size, no_bid_price, no_bid_size,
			price_sum, profit_margin, profit_bps, max_trade_size,
			estimated_profit, total_fees, net_profit, net_profit_bps,
			config_threshold
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		opp.ID,
		marketID,
		opp.MarketSlug,
		opp.MarketQuestion,
		opp.DetectedAt,
		firstPrice,  // Reuse yes_bid_price column for first leg
		firstSize,   // Reuse yes_bid_size column for first leg
		secondPrice, // Reuse no_bid_price column for second leg
		secondSize,  // Reuse no_bid_size column for second leg
		totalCost,
		0.0, // profit_margin: superseded by edge/NetProfitBPS, kept zero rather than dropped
		opp.NetProfitBPS,
		maxTradeSize,
		estimatedProfit,
		totalFees,
		netProfit,
		opp.NetProfitBPS,
		0.0, // config_threshold: no longer a single global constant; see risk.Config
	)

	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored",
		zap.String("opportunity-id", opp.ID),
		zap.String("market-slug", opp.MarketSlug),
		zap.Int("leg-count", len(opp.Legs)))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
