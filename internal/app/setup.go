package app

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/usealtoal/predictarb/internal/circuitbreaker"
	"github.com/usealtoal/predictarb/internal/discovery"
	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/internal/execution"
	"github.com/usealtoal/predictarb/internal/markets"
	"github.com/usealtoal/predictarb/internal/orderbookcache"
	"github.com/usealtoal/predictarb/internal/position"
	"github.com/usealtoal/predictarb/internal/risk"
	"github.com/usealtoal/predictarb/internal/storage"
	"github.com/usealtoal/predictarb/internal/strategy"
	"github.com/usealtoal/predictarb/pkg/cache"
	"github.com/usealtoal/predictarb/pkg/config"
	"github.com/usealtoal/predictarb/pkg/healthprobe"
	"github.com/usealtoal/predictarb/pkg/httpserver"
	"github.com/usealtoal/predictarb/pkg/wallet"
	"github.com/usealtoal/predictarb/pkg/websocket"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker()

	marketCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	discoveryService := setupDiscoveryService(cfg, logger, marketCache, opts)
	wsPool := setupWebSocketPool(cfg, logger)

	updateSignals := make(chan domain.TokenID, 10000)
	obCache := orderbookcache.New(func(token domain.TokenID) {
		select {
		case updateSignals <- token:
		default:
		}
	})
	feed := orderbookcache.NewFeed(obCache, wsPool.MessageChan(), logger)

	httpServer := setupHTTPServer(cfg, logger, healthChecker, obCache, discoveryService)

	arbStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	metadataClient := markets.NewMetadataClient()
	cachedMetadataClient := markets.NewCachedMetadataClient(metadataClient, marketCache)

	positions := position.NewTracker()
	marketRegistry := domain.NewMarketRegistry()
	registry := setupStrategyRegistry()

	balanceBreaker := setupBalanceBreaker(ctx, cfg, logger)
	failureBreaker := risk.NewFailureBreaker(cfg.ExecutionFailureMaxConsecutive, cfg.ExecutionFailureCooldown, logger)

	riskManager := setupRiskManager(cfg, obCache, positions, failureBreaker, balanceBreaker, logger)

	executor, err := setupExecutor(cfg, logger, cachedMetadataClient, positions, failureBreaker)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup executor: %w", err)
	}

	detectionCfg := strategy.DetectionContext{
		Payout:      domain.DefaultPayout,
		TakerFee:    decimal.NewFromFloat(cfg.ArbTakerFee),
		MinEdge:     decimal.NewFromFloat(cfg.RiskMinEdge),
		MinProfit:   decimal.NewFromFloat(cfg.RiskMinProfitThreshold),
		MaxOutcomes: cfg.ArbMaxOutcomes,
		Registry:    marketRegistry,
	}

	return &App{
		cfg:              cfg,
		logger:           logger,
		healthChecker:    healthChecker,
		httpServer:       httpServer,
		discoveryService: discoveryService,
		wsPool:           wsPool,
		cache:            obCache,
		feed:             feed,
		marketRegistry:   marketRegistry,
		registry:         registry,
		riskManager:      riskManager,
		positions:        positions,
		executor:         executor,
		storage:          arbStorage,
		detectionCfg:     detectionCfg,
		updateSignals:    updateSignals,
		ctx:              ctx,
		cancel:           cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New()
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	obCache *orderbookcache.Cache,
	discoveryService *discovery.Service,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:             cfg.HTTPPort,
		Logger:           logger,
		HealthChecker:    healthChecker,
		OrderbookCache:   obCache,
		DiscoveryService: discoveryService,
	})
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000, // 10x expected max items (1000 markets)
		MaxCost:     1000,  // Maximum 1000 items in cache
		BufferItems: 64,    // Buffer size for Get operations
		Logger:      logger,
	})
}

func setupDiscoveryService(cfg *config.Config, logger *zap.Logger, marketCache cache.Cache, opts *Options) *discovery.Service {
	discoveryClient := discovery.NewClient(cfg.PolymarketGammaURL, logger)
	return discovery.New(&discovery.Config{
		Client:            discoveryClient,
		Cache:             marketCache,
		PollInterval:      cfg.DiscoveryPollInterval,
		MarketLimit:       cfg.DiscoveryMarketLimit,
		MaxMarketDuration: cfg.MaxMarketDuration,
		Logger:            logger,
		SingleMarket:      opts.SingleMarket,
	})
}

func setupWebSocketPool(cfg *config.Config, logger *zap.Logger) *websocket.Pool {
	return websocket.NewPool(websocket.PoolConfig{
		Size:                  cfg.WSPoolSize,
		WSUrl:                 cfg.PolymarketWSURL,
		DialTimeout:           cfg.WSDialTimeout,
		PongTimeout:           cfg.WSPongTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		MessageBufferSize:     cfg.WSMessageBufferSize,
		Logger:                logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

// setupStrategyRegistry registers the two detectors that need no external
// relation source: the binary single-condition detector and the N-outcome
// market-rebalancing detector. Combinatorial is deliberately left
// unregistered here: it needs a ports.RelationSource implementation
// (LLM-assisted relation inference), which is explicitly out of scope
// (see ports.RelationSource's doc comment) and has no concrete
// implementation anywhere in this module.
func setupStrategyRegistry() *strategy.Registry {
	return strategy.NewRegistry(
		strategy.NewSingleCondition(),
		strategy.NewMarketRebalancing(),
	)
}

func setupRiskManager(
	cfg *config.Config,
	obCache *orderbookcache.Cache,
	positions *position.Tracker,
	failureBreaker *risk.FailureBreaker,
	balanceBreaker *circuitbreaker.BalanceCircuitBreaker,
	logger *zap.Logger,
) *risk.Manager {
	riskCfg := risk.Config{
		MinEdge:              decimal.NewFromFloat(cfg.RiskMinEdge),
		MinProfitThreshold:   decimal.NewFromFloat(cfg.RiskMinProfitThreshold),
		MaxPositionPerMarket: decimal.NewFromFloat(cfg.RiskMaxPositionPerMarket),
		MaxTotalExposure:     decimal.NewFromFloat(cfg.RiskMaxTotalExposure),
		MaxSlippage:          decimal.NewFromFloat(cfg.RiskMaxSlippage),
	}

	// balanceBreaker is typed nil when the circuit breaker isn't configured;
	// pass a literal nil interface value instead so risk.Manager's nil
	// check (`m.balanceBreaker != nil`) behaves correctly.
	var breaker risk.BalanceBreaker
	if balanceBreaker != nil {
		breaker = balanceBreaker
	}

	return risk.New(riskCfg, obCache, positions, failureBreaker, breaker, nil, logger)
}

// setupBalanceBreaker builds the wallet-balance circuit breaker
// (distinct from risk.FailureBreaker's execution-failure breaker) if
// POLYMARKET_PRIVATE_KEY is set and CIRCUIT_BREAKER_ENABLED is true.
func setupBalanceBreaker(ctx context.Context, cfg *config.Config, logger *zap.Logger) *circuitbreaker.BalanceCircuitBreaker {
	if !cfg.CircuitBreakerEnabled {
		return nil
	}

	privateKeyHex := os.Getenv("POLYMARKET_PRIVATE_KEY")
	if privateKeyHex == "" {
		logger.Warn("circuit-breaker-disabled-no-private-key",
			zap.String("note", "POLYMARKET_PRIVATE_KEY not set, circuit breaker disabled"))
		return nil
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		logger.Warn("circuit-breaker-disabled-invalid-key", zap.Error(err))
		return nil
	}

	publicKey := privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		logger.Warn("circuit-breaker-disabled-key-cast-failed")
		return nil
	}
	address := crypto.PubkeyToAddress(*publicKeyECDSA)

	rpcURL := os.Getenv("POLYGON_RPC_URL")
	if rpcURL == "" {
		rpcURL = "https://polygon-rpc.com"
	}

	walletClient, err := wallet.NewClient(rpcURL, logger)
	if err != nil {
		logger.Warn("circuit-breaker-disabled-wallet-client-failed", zap.Error(err))
		return nil
	}

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   cfg.CircuitBreakerCheckInterval,
		TradeMultiplier: cfg.CircuitBreakerTradeMultiplier,
		MinAbsolute:     cfg.CircuitBreakerMinAbsolute,
		HysteresisRatio: cfg.CircuitBreakerHysteresisRatio,
		WalletClient:    walletClient,
		Address:         address,
		Logger:          logger,
	})
	if err != nil {
		logger.Warn("circuit-breaker-disabled-construction-failed", zap.Error(err))
		return nil
	}

	breaker.Start(ctx)

	logger.Info("circuit-breaker-enabled",
		zap.Duration("check_interval", cfg.CircuitBreakerCheckInterval),
		zap.Float64("trade_multiplier", cfg.CircuitBreakerTradeMultiplier),
		zap.Float64("min_absolute", cfg.CircuitBreakerMinAbsolute),
		zap.Float64("hysteresis_ratio", cfg.CircuitBreakerHysteresisRatio))

	return breaker
}

// setupExecutor builds the ArbitrageExecutor. An OrderClient is only
// constructed for live trading; paper and dry-run modes never reach
// Executor.submitLeg so a nil OrderClient is safe there.
func setupExecutor(
	cfg *config.Config,
	logger *zap.Logger,
	tickSource execution.TickSizeSource,
	positions *position.Tracker,
	failureBreaker *risk.FailureBreaker,
) (*execution.Executor, error) {
	mode := execution.ModePaper
	dryRun := false

	switch cfg.ExecutionMode {
	case "paper":
		mode = execution.ModePaper
	case "live":
		mode = execution.ModeLive
	case "dry-run":
		mode = execution.ModeLive
		dryRun = true
	}

	var orderClient *execution.OrderClient
	if mode == execution.ModeLive && !dryRun {
		privateKeyHex := os.Getenv("POLYMARKET_PRIVATE_KEY")
		if privateKeyHex == "" {
			return nil, fmt.Errorf("POLYMARKET_PRIVATE_KEY must be set for live execution")
		}

		client, err := execution.NewOrderClient(&execution.OrderClientConfig{
			APIKey:     cfg.PolymarketAPIKey,
			Secret:     cfg.PolymarketSecret,
			Passphrase: cfg.PolymarketPassphrase,
			PrivateKey: privateKeyHex,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create order client: %w", err)
		}
		orderClient = client
	}

	executor := execution.New(&execution.Config{
		Mode:             mode,
		DryRun:           dryRun,
		OrderClient:      orderClient,
		TickSource:       tickSource,
		Positions:        positions,
		Breaker:          failureBreaker,
		Notifier:         nil,
		Logger:           logger,
		AggressionTicks:  cfg.ExecutionAggressionTicks,
		TakerFee:         decimal.NewFromFloat(cfg.ArbTakerFee),
		FillTimeout:      cfg.ExecutionFillTimeout,
		FillRetryInitial: cfg.ExecutionFillRetryInitial,
		FillRetryMax:     cfg.ExecutionFillRetryMax,
		FillRetryMult:    cfg.ExecutionFillRetryMult,
	})

	return executor, nil
}
