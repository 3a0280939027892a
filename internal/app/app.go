package app

import (
	"context"
	"sync"

	"github.com/usealtoal/predictarb/internal/discovery"
	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/internal/execution"
	"github.com/usealtoal/predictarb/internal/orderbookcache"
	"github.com/usealtoal/predictarb/internal/position"
	"github.com/usealtoal/predictarb/internal/risk"
	"github.com/usealtoal/predictarb/internal/storage"
	"github.com/usealtoal/predictarb/internal/strategy"
	"github.com/usealtoal/predictarb/pkg/config"
	"github.com/usealtoal/predictarb/pkg/healthprobe"
	"github.com/usealtoal/predictarb/pkg/httpserver"
	"github.com/usealtoal/predictarb/pkg/websocket"
	"go.uber.org/zap"
)

// App is the main application orchestrator. It wires the detection/risk/
// execution pipeline of SPEC_FULL §2 (OrderBookCache.Update ->
// StrategyRegistry.DetectAll -> RiskManager.Check ->
// Executor.ExecuteArbitrage -> PositionTracker.Add/RecordPartial) on top
// of the teacher's discovery/websocket bootstrap.
type App struct {
	cfg              *config.Config
	logger           *zap.Logger
	healthChecker    *healthprobe.HealthChecker
	httpServer       *httpserver.Server
	discoveryService *discovery.Service
	wsPool           *websocket.Pool

	cache          *orderbookcache.Cache
	feed           *orderbookcache.Feed
	marketRegistry *domain.MarketRegistry
	registry       *strategy.Registry
	riskManager    *risk.Manager
	positions      *position.Tracker
	executor       *execution.Executor
	storage        storage.Storage

	detectionCfg  strategy.DetectionContext
	updateSignals chan domain.TokenID

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct {
	SingleMarket string // For debugging: slug of single market to track
}
