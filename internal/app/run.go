package app

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/internal/execution"
	"github.com/usealtoal/predictarb/internal/ports"
	"github.com/usealtoal/predictarb/internal/strategy"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("mode", a.cfg.ExecutionMode),
		zap.Float64("arb-threshold", a.cfg.ArbThreshold),
		zap.String("log-level", a.cfg.LogLevel))

	// Start all components
	err := a.startComponents()
	if err != nil {
		return err
	}

	// Mark as ready
	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("ws-url", a.cfg.PolymarketWSURL))

	// Wait for shutdown signal
	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	// Start discovery service
	a.wg.Add(1)
	go a.runDiscoveryService()

	// Start WebSocket manager
	err := a.startWebSocketManager()
	if err != nil {
		return fmt.Errorf("start websocket manager: %w", err)
	}

	// Start market subscription handler
	a.wg.Add(1)
	go a.handleNewMarkets()

	// Start the orderbook feed translating wire messages into cache
	// snapshots (which in turn fires updateSignals).
	a.wg.Add(1)
	go a.runOrderbookFeed()

	// Start the detection/risk/execution orchestrator loop.
	a.wg.Add(1)
	go a.runOrchestrator()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runDiscoveryService() {
	defer a.wg.Done()
	err := a.discoveryService.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("discovery-service-error", zap.Error(err))
	}
}

func (a *App) startWebSocketManager() error {
	return a.wsPool.Start()
}

func (a *App) runOrderbookFeed() {
	defer a.wg.Done()
	a.feed.Run(a.ctx)
}

// runOrchestrator is the detection/risk/execution pipeline of SPEC_FULL
// §2: every token update signalled by the cache triggers re-detection on
// that token's market, a risk check on each resulting opportunity, and
// execution of whatever passes the check.
func (a *App) runOrchestrator() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case token, ok := <-a.updateSignals:
			if !ok {
				return
			}
			a.handleTokenUpdate(token)
		}
	}
}

func (a *App) handleTokenUpdate(token domain.TokenID) {
	market, ok := a.marketRegistry.GetByToken(token)
	if !ok {
		return
	}

	mctx := strategy.MarketContext{Market: market, HasCluster: false}
	dctx := a.detectionCfg
	dctx.Market = market
	dctx.Cache = a.cache

	opportunities, err := a.registry.DetectAll(a.ctx, mctx, dctx)
	if err != nil {
		a.logger.Warn("detection-error", zap.String("market-id", string(market.ID)), zap.Error(err))
		return
	}

	for _, opp := range opportunities {
		a.handleOpportunity(opp)
	}
}

func (a *App) handleOpportunity(opp *domain.Opportunity) {
	decision := a.riskManager.Check(a.ctx, opp)
	if !decision.Approved {
		a.logger.Debug("opportunity-rejected",
			zap.String("opportunity-id", opp.ID),
			zap.String("reason", decision.Kind.String()))
		return
	}

	err := a.storage.Record(a.ctx, ports.StatsRecord{Kind: ports.OpportunityRecorded, Opportunity: opp})
	if err != nil {
		a.logger.Warn("opportunity-record-failed", zap.Error(err))
	}

	result, err := a.executor.ExecuteArbitrage(a.ctx, opp)
	if err != nil {
		a.logger.Error("execution-error", zap.String("opportunity-id", opp.ID), zap.Error(err))
		return
	}

	a.recordExecutionResult(opp, result)
}

// recordExecutionResult persists the trade outcome. Position bookkeeping
// itself (Add/RecordPartial) already happened inside the executor; this
// only logs/records the result for observability.
func (a *App) recordExecutionResult(opp *domain.Opportunity, result execution.ExecutionResult) {
	switch result.Kind {
	case execution.ResultSuccess:
		err := a.storage.Record(a.ctx, ports.StatsRecord{Kind: ports.TradeOpened, Position: result.Position})
		if err != nil {
			a.logger.Warn("trade-record-failed", zap.Error(err))
		}
	case execution.ResultPartialFill:
		a.logger.Warn("opportunity-partial-fill",
			zap.String("opportunity-id", opp.ID),
			zap.String("filled-leg", string(result.FilledLeg)),
			zap.String("failed-leg", string(result.FailedLeg)),
			zap.String("reason", result.Reason))
		if result.Position != nil {
			err := a.storage.Record(a.ctx, ports.StatsRecord{Kind: ports.TradeOpened, Position: result.Position})
			if err != nil {
				a.logger.Warn("trade-record-failed", zap.Error(err))
			}
		}
	case execution.ResultFailed:
		a.logger.Warn("opportunity-execution-failed",
			zap.String("opportunity-id", opp.ID),
			zap.String("reason", result.Reason),
			zap.Error(result.Err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
