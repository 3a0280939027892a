// Package execution implements the ArbitrageExecutor capability of
// SPEC_FULL §4.13: given an approved Opportunity, submit one order per
// leg, reconcile partial fills, and record the resulting Position.
package execution

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/internal/ports"
	"github.com/usealtoal/predictarb/internal/position"
	"github.com/usealtoal/predictarb/internal/risk"
)

// Mode selects between paper and live trading, matching the teacher's
// string-valued mode field.
type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

// ResultKind tags an ExecutionResult, mirroring SPEC_FULL §4.13's
// Success/PartialFill/Failed sum type as a discriminated struct.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultPartialFill
	ResultFailed
)

// ExecutionResult is the outcome of one ExecuteArbitrage call.
type ExecutionResult struct {
	Kind ResultKind

	// ResultSuccess
	OrderIDs []domain.OrderID
	Position *domain.Position

	// ResultPartialFill
	FilledOrderIDs []domain.OrderID
	FilledLeg      domain.TokenID
	FailedLeg      domain.TokenID

	Reason string
	Err    error
}

// TickSizeSource resolves per-token rounding metadata. internal/markets'
// CachedMetadataClient satisfies this structurally.
type TickSizeSource interface {
	GetTokenMetadata(ctx context.Context, tokenID string) (tickSize, minOrderSize float64, err error)
}

// Config configures a new Executor.
type Config struct {
	Mode   Mode
	DryRun bool

	OrderClient *OrderClient
	TickSource  TickSizeSource
	Positions   *position.Tracker
	Breaker     *risk.FailureBreaker
	Notifier    ports.Notifier
	Logger      *zap.Logger

	AggressionTicks int
	TakerFee        decimal.Decimal

	FillTimeout      time.Duration
	FillRetryInitial time.Duration
	FillRetryMax     time.Duration
	FillRetryMult    float64
}

// Executor is the ArbitrageExecutor.
type Executor struct {
	mode   Mode
	dryRun bool

	orderClient *OrderClient
	tickSource  TickSizeSource
	positions   *position.Tracker
	breaker     *risk.FailureBreaker
	notifier    ports.Notifier
	logger      *zap.Logger

	aggressionTicks int
	takerFee        decimal.Decimal

	fillTimeout      time.Duration
	fillRetryInitial time.Duration
	fillRetryMax     time.Duration
	fillRetryMult    float64

	mu             sync.Mutex
	pendingMarkets map[domain.MarketID]struct{}

	profitMu         sync.Mutex
	cumulativeProfit decimal.Decimal
}

// New builds an Executor.
func New(cfg *Config) *Executor {
	return &Executor{
		mode:             cfg.Mode,
		dryRun:           cfg.DryRun,
		orderClient:      cfg.OrderClient,
		tickSource:       cfg.TickSource,
		positions:        cfg.Positions,
		breaker:          cfg.Breaker,
		notifier:         cfg.Notifier,
		logger:           cfg.Logger,
		aggressionTicks:  cfg.AggressionTicks,
		takerFee:         cfg.TakerFee,
		fillTimeout:      cfg.FillTimeout,
		fillRetryInitial: cfg.FillRetryInitial,
		fillRetryMax:     cfg.FillRetryMax,
		fillRetryMult:    cfg.FillRetryMult,
		pendingMarkets:   make(map[domain.MarketID]struct{}),
	}
}

// ExecuteArbitrage runs the protocol of SPEC_FULL §4.13 for one approved
// opportunity: duplicate-suppression, per-leg submission, and partial-fill
// reconciliation.
func (e *Executor) ExecuteArbitrage(ctx context.Context, opp *domain.Opportunity) (ExecutionResult, error) {
	OpportunitiesReceived.Inc()

	if !e.tryLockExecution(opp.MarketIDs) {
		OpportunitiesSkippedTotal.WithLabelValues("duplicate_execution").Inc()
		e.logger.Debug("execution-dropped-duplicate", zap.String("opportunity-id", opp.ID))
		return ExecutionResult{Kind: ResultFailed, Reason: "execution already in flight for this market"}, nil
	}
	defer e.unlockExecution(opp.MarketIDs)

	start := time.Now()
	defer func() { ExecutionDurationSeconds.Observe(time.Since(start).Seconds()) }()

	if e.mode == ModePaper {
		return e.executePaper(opp), nil
	}
	if e.dryRun {
		return e.executeDryRun(opp), nil
	}
	return e.executeLive(ctx, opp)
}

// tryLockExecution acquires the per-market locks atomically: either every
// market in ids is free and gets locked, or none are touched.
func (e *Executor) tryLockExecution(ids []domain.MarketID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range ids {
		if _, busy := e.pendingMarkets[id]; busy {
			return false
		}
	}
	for _, id := range ids {
		e.pendingMarkets[id] = struct{}{}
	}
	return true
}

func (e *Executor) unlockExecution(ids []domain.MarketID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		delete(e.pendingMarkets, id)
	}
}

// executePaper simulates an instant, fully-filled trade at the detected
// ask prices and records an Open position, matching the teacher's paper
// mode semantics generalized from two legs to N.
func (e *Executor) executePaper(opp *domain.Opportunity) ExecutionResult {
	legs := make([]domain.PositionLeg, len(opp.Legs))
	orderIDs := make([]domain.OrderID, len(opp.Legs))
	for i, leg := range opp.Legs {
		orderID := domain.OrderID(fmt.Sprintf("paper-%s-%d", opp.ID, i))
		legs[i] = domain.PositionLeg{TokenID: leg.TokenID, OrderID: orderID, Price: leg.AskPrice, Size: opp.Volume, Filled: true}
		orderIDs[i] = orderID
	}

	pos := e.openPosition(opp, legs)
	e.addRealizedProfit("paper", opp.NetProfit)

	e.logger.Info("paper-trade-executed",
		zap.String("opportunity-id", opp.ID),
		zap.String("market-slug", opp.MarketSlug),
		zap.String("net-profit-usd", opp.NetProfit.String()))

	OpportunitiesExecuted.Inc()
	e.notify(context.Background(), ports.Executed, opp, pos, "")
	return ExecutionResult{Kind: ResultSuccess, OrderIDs: orderIDs, Position: pos}
}

// executeDryRun exercises the live code path's bookkeeping without
// contacting the exchange, per SPEC_FULL §4.13's dry-run clause.
func (e *Executor) executeDryRun(opp *domain.Opportunity) ExecutionResult {
	legs := make([]domain.PositionLeg, len(opp.Legs))
	orderIDs := make([]domain.OrderID, len(opp.Legs))
	for i, leg := range opp.Legs {
		orderID := domain.OrderID(fmt.Sprintf("dryrun-%s-%d", opp.ID, i))
		legs[i] = domain.PositionLeg{TokenID: leg.TokenID, OrderID: orderID, Price: leg.AskPrice, Size: opp.Volume, Filled: true}
		orderIDs[i] = orderID
	}
	pos := e.openPosition(opp, legs)
	OpportunitiesExecuted.Inc()
	e.notify(context.Background(), ports.Executed, opp, pos, "dry-run")
	return ExecutionResult{Kind: ResultSuccess, OrderIDs: orderIDs, Position: pos}
}

type legSubmission struct {
	leg     domain.Leg
	orderID domain.OrderID
	err     error
}

// executeLive submits one order per leg concurrently, waits for every
// submission acknowledgement, then dispatches to the success, failure or
// partial-fill reconciliation path per §4.13 steps 2-5.
func (e *Executor) executeLive(ctx context.Context, opp *domain.Opportunity) (ExecutionResult, error) {
	submissions := make([]legSubmission, len(opp.Legs))

	var wg sync.WaitGroup
	for i, leg := range opp.Legs {
		wg.Add(1)
		go func(i int, leg domain.Leg) {
			defer wg.Done()
			orderID, err := e.submitLeg(ctx, leg, opp.Volume)
			submissions[i] = legSubmission{leg: leg, orderID: orderID, err: err}
		}(i, leg)
	}
	wg.Wait()

	var succeeded, failed []legSubmission
	for _, s := range submissions {
		if s.err != nil {
			failed = append(failed, s)
		} else {
			succeeded = append(succeeded, s)
		}
	}

	switch {
	case len(failed) == 0:
		return e.handleAllFilled(opp, succeeded), nil
	case len(succeeded) == 0:
		return e.handleAllFailed(opp, failed), failed[0].err
	default:
		return e.handlePartialFill(ctx, opp, succeeded, failed), nil
	}
}

// submitLeg fetches rounding metadata, applies the aggression adjustment,
// and submits a single leg order.
func (e *Executor) submitLeg(ctx context.Context, leg domain.Leg, volume domain.Volume) (domain.OrderID, error) {
	tickSize, minOrderSize, err := e.tickSource.GetTokenMetadata(ctx, string(leg.TokenID))
	if err != nil {
		ExecutionErrorsByType.WithLabelValues("metadata").Inc()
		return "", fmt.Errorf("fetch metadata for %s: %w", leg.TokenID, err)
	}

	price := adjustPriceForAggression(leg.AskPrice, decimal.NewFromFloat(tickSize), e.aggressionTicks)

	orderID, err := e.orderClient.SubmitLegOrder(ctx, string(leg.TokenID), price, volume, tickSize, minOrderSize)
	if err != nil {
		ExecutionErrorsByType.WithLabelValues(classifyError(err)).Inc()
		return "", err
	}
	TradesTotal.WithLabelValues(string(ModeLive)).Inc()
	return domain.OrderID(orderID), nil
}

func (e *Executor) handleAllFilled(opp *domain.Opportunity, succeeded []legSubmission) ExecutionResult {
	e.recordBreakerSuccess()
	OpportunitiesExecuted.Inc()

	legs := make([]domain.PositionLeg, len(succeeded))
	orderIDs := make([]domain.OrderID, len(succeeded))
	for i, s := range succeeded {
		legs[i] = domain.PositionLeg{TokenID: s.leg.TokenID, OrderID: s.orderID, Price: s.leg.AskPrice, Size: opp.Volume, Filled: true}
		orderIDs[i] = s.orderID
	}

	pos := e.openPosition(opp, legs)
	e.logger.Info("all-legs-submitted",
		zap.String("opportunity-id", opp.ID),
		zap.String("market-slug", opp.MarketSlug),
		zap.Int("leg-count", len(legs)))

	e.notify(context.Background(), ports.Executed, opp, pos, "")

	if e.fillTimeout > 0 {
		requests := make([]FillRequest, len(succeeded))
		for i, s := range succeeded {
			requests[i] = FillRequest{OrderID: s.orderID, TokenID: s.leg.TokenID, Size: opp.Volume}
		}
		go e.verifyFillsAsync(opp, requests)
	}

	return ExecutionResult{Kind: ResultSuccess, OrderIDs: orderIDs, Position: pos}
}

// verifyFillsAsync polls each leg's fill state off the hot path and
// records the actual realized profit once every leg is fully filled.
// ExecuteArbitrage's own return value never waits on this: the protocol
// of §4.13 treats a submission acknowledgement as sufficient to open the
// position, matching the teacher's own async-verify-for-metrics pattern
// rather than its position-creation gate.
func (e *Executor) verifyFillsAsync(opp *domain.Opportunity, requests []FillRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), e.fillTimeout+10*time.Second)
	defer cancel()

	tracker := NewFillTracker(e.orderClient, e.logger, &FillTrackerConfig{
		InitialBackoff: e.fillRetryInitial,
		MaxBackoff:     e.fillRetryMax,
		BackoffMult:    e.fillRetryMult,
		FillTimeout:    e.fillTimeout,
	})

	start := time.Now()
	statuses, err := tracker.VerifyFills(ctx, requests)
	FillVerificationDurationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		FillVerificationTotal.WithLabelValues("error").Inc()
		e.logger.Error("fill-verification-failed", zap.String("opportunity-id", opp.ID), zap.Error(err))
		return
	}

	allFilled := true
	actualCost := decimal.Zero
	for _, s := range statuses {
		if !s.FullyFilled {
			allFilled = false
			continue
		}
		actualCost = actualCost.Add(s.ActualPrice.Mul(s.SizeFilled))
	}

	if !allFilled {
		FillVerificationTotal.WithLabelValues("partial").Inc()
		e.logger.Warn("legs-not-fully-filled", zap.String("opportunity-id", opp.ID))
		return
	}

	FillVerificationTotal.WithLabelValues("success").Inc()
	actualProfit := opp.Payout.Mul(opp.Volume).Sub(actualCost)
	e.addRealizedProfit("live", actualProfit)

	e.logger.Info("all-legs-fully-filled",
		zap.String("opportunity-id", opp.ID),
		zap.String("expected-profit-usd", opp.NetProfit.String()),
		zap.String("actual-profit-usd", actualProfit.String()))
}

func (e *Executor) handleAllFailed(opp *domain.Opportunity, failed []legSubmission) ExecutionResult {
	e.recordBreakerFailure()
	ExecutionErrorsTotal.Inc()

	reason := fmt.Sprintf("all %d leg(s) failed: %s", len(failed), failed[0].err)
	e.logger.Error("all-legs-failed",
		zap.String("opportunity-id", opp.ID),
		zap.String("market-slug", opp.MarketSlug),
		zap.Error(failed[0].err))

	e.notify(context.Background(), ports.Executed, opp, nil, reason)
	return ExecutionResult{Kind: ResultFailed, Reason: reason, Err: failed[0].err}
}

// handlePartialFill implements §4.13 step 4: cancel the succeeded legs;
// if every cancel succeeds, no position is created and the trade is
// reported as a clean PartialFill. If a cancel fails (the leg already
// filled), a Position{Status: PartialFill} is recorded for human
// intervention or automated unwind.
func (e *Executor) handlePartialFill(ctx context.Context, opp *domain.Opportunity, succeeded, failed []legSubmission) ExecutionResult {
	e.recordBreakerFailure()

	var uncancelable []legSubmission
	for _, s := range succeeded {
		if err := e.orderClient.CancelOrder(ctx, string(s.orderID)); err != nil {
			CancelsTotal.WithLabelValues("failed").Inc()
			uncancelable = append(uncancelable, s)
			e.logger.Warn("leg-cancel-failed",
				zap.String("opportunity-id", opp.ID),
				zap.String("order-id", string(s.orderID)),
				zap.Error(err))
		} else {
			CancelsTotal.WithLabelValues("succeeded").Inc()
		}
	}

	filledLeg := succeeded[0].leg.TokenID
	failedLeg := failed[0].leg.TokenID

	if len(uncancelable) == 0 {
		PartialFillsTotal.WithLabelValues("canceled_clean").Inc()
		reason := fmt.Sprintf("%d leg(s) failed; %d succeeded leg(s) canceled cleanly", len(failed), len(succeeded))
		e.logger.Warn("partial-fill-reconciled",
			zap.String("opportunity-id", opp.ID),
			zap.String("reason", reason))
		e.notify(ctx, ports.PartialFillEvent, opp, nil, reason)
		return ExecutionResult{Kind: ResultPartialFill, FilledLeg: filledLeg, FailedLeg: failedLeg, Reason: reason}
	}

	PartialFillsTotal.WithLabelValues("needs_intervention").Inc()

	legs := make([]domain.PositionLeg, 0, len(uncancelable))
	orderIDs := make([]domain.OrderID, 0, len(uncancelable))
	for _, s := range uncancelable {
		legs = append(legs, domain.PositionLeg{TokenID: s.leg.TokenID, OrderID: s.orderID, Price: s.leg.AskPrice, Size: opp.Volume, Filled: true})
		orderIDs = append(orderIDs, s.orderID)
	}

	pos := &domain.Position{
		ID:         e.positions.NextID(),
		MarketIDs:  opp.MarketIDs,
		Legs:       legs,
		EntryCost:  opp.TotalCost.Mul(opp.Volume),
		Status:     domain.StatusPartialFill,
		FilledLeg:  uncancelable[0].leg.TokenID,
		MissingLeg: failedLeg,
		OpenedAt:   time.Now(),
	}
	e.positions.Add(pos)

	reason := "cancellation failed for a filled leg; position recorded for manual unwind"
	e.logger.Error("partial-fill-needs-intervention",
		zap.String("opportunity-id", opp.ID),
		zap.Int64("position-id", int64(pos.ID)),
		zap.String("filled-leg", string(pos.FilledLeg)),
		zap.String("missing-leg", string(pos.MissingLeg)))

	e.notify(ctx, ports.PartialFillEvent, opp, pos, reason)
	return ExecutionResult{
		Kind:           ResultPartialFill,
		FilledOrderIDs: orderIDs,
		FilledLeg:      pos.FilledLeg,
		FailedLeg:      pos.MissingLeg,
		Position:       pos,
		Reason:         reason,
	}
}

func (e *Executor) openPosition(opp *domain.Opportunity, legs []domain.PositionLeg) *domain.Position {
	pos := &domain.Position{
		ID:               e.positions.NextID(),
		MarketIDs:        opp.MarketIDs,
		Legs:             legs,
		EntryCost:        opp.TotalCost.Mul(opp.Volume),
		GuaranteedPayout: opp.Payout.Mul(opp.Volume),
		Status:           domain.StatusOpen,
		OpenedAt:         time.Now(),
	}
	e.positions.Add(pos)
	return pos
}

func (e *Executor) addRealizedProfit(mode string, profit decimal.Decimal) {
	e.profitMu.Lock()
	e.cumulativeProfit = e.cumulativeProfit.Add(profit)
	e.profitMu.Unlock()
	f, _ := profit.Float64()
	ProfitRealizedUSD.WithLabelValues(mode).Add(f)
}

func (e *Executor) recordBreakerSuccess() {
	if e.breaker != nil {
		e.breaker.RecordSuccess()
	}
}

func (e *Executor) recordBreakerFailure() {
	if e.breaker != nil {
		e.breaker.RecordFailure()
	}
}

func (e *Executor) notify(ctx context.Context, kind ports.EventKind, opp *domain.Opportunity, pos *domain.Position, reason string) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(ctx, ports.Event{Kind: kind, Opportunity: opp, Position: pos, Reason: reason})
}

// adjustPriceForAggression nudges the take price aggressionTicks ticks
// above the detected ask to improve fill probability in a moving book,
// capped below 1.0 and rounded down to the token's tick size.
func adjustPriceForAggression(askPrice, tickSize decimal.Decimal, aggressionTicks int) decimal.Decimal {
	if aggressionTicks <= 0 || tickSize.IsZero() {
		return askPrice
	}
	adjusted := askPrice.Add(tickSize.Mul(decimal.NewFromInt(int64(aggressionTicks))))
	ceiling := decimal.NewFromFloat(0.9999)
	if adjusted.GreaterThan(ceiling) {
		adjusted = ceiling
	}
	return adjusted.Div(tickSize).Floor().Mul(tickSize)
}

// Close logs the final cumulative profit. It does not wait for in-flight
// work such as background fill verification.
func (e *Executor) Close() error {
	e.profitMu.Lock()
	finalProfit := e.cumulativeProfit
	e.profitMu.Unlock()

	e.logger.Info("executor-closed",
		zap.String("total-profit-usd", finalProfit.String()),
		zap.String("mode", string(e.mode)))
	return nil
}

// classifyError classifies a leg submission error by type, matching the
// teacher's heuristic error bucketing for ExecutionErrorsByType.
func classifyError(err error) string {
	if err == nil {
		return "unknown"
	}

	errMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errMsg, "connection refused"),
		strings.Contains(errMsg, "timeout"),
		strings.Contains(errMsg, "dial"),
		strings.Contains(errMsg, "eof"),
		strings.Contains(errMsg, "network"):
		return "network"
	case strings.Contains(errMsg, "api error"),
		strings.Contains(errMsg, "invalid"),
		strings.Contains(errMsg, "bad request"),
		strings.Contains(errMsg, "400"),
		strings.Contains(errMsg, "403"),
		strings.Contains(errMsg, "404"),
		strings.Contains(errMsg, "500"):
		return "api"
	case strings.Contains(errMsg, "missing"),
		strings.Contains(errMsg, "required"),
		strings.Contains(errMsg, "not configured"),
		strings.Contains(errMsg, "below minimum"):
		return "validation"
	case strings.Contains(errMsg, "insufficient"),
		strings.Contains(errMsg, "balance"),
		strings.Contains(errMsg, "funds"):
		return "funds"
	default:
		return "unknown"
	}
}
