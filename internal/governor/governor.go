// Package governor implements the adaptive SubscriptionGovernor of
// SPEC_FULL §4.4: it watches end-to-end detection latency and expands or
// contracts the actively-subscribed token set to keep latency within
// configured targets.
package governor

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/usealtoal/predictarb/internal/domain"
)

// Config holds the governor section of §6's configuration list. Ordering
// TargetP50 <= TargetP95 <= TargetP99 <= MaxP99 is enforced by the config
// loader, not here.
type Config struct {
	TargetP50 time.Duration
	TargetP95 time.Duration
	TargetP99 time.Duration
	MaxP99    time.Duration

	CheckInterval time.Duration

	// ExpandThreshold/ContractThreshold are ratios against TargetP99:
	// r = currentP99 / TargetP99. r <= ExpandThreshold means headroom;
	// r >= ContractThreshold means pressure.
	ExpandThreshold   decimal.Decimal
	ContractThreshold decimal.Decimal

	ExpandStep   int
	ContractStep int
	Cooldown     time.Duration
}

// CandidatePool supplies tokens eligible for subscription but not
// currently active.
type CandidatePool func() []domain.TokenID

// PinnedTokens supplies tokens that must never be contracted away: those
// referenced by any non-closed position (§4.4 invariant).
type PinnedTokens func() []domain.TokenID

// ScaleAction is invoked when the governor decides to expand or contract
// the active set; the caller is responsible for actually (un)subscribing
// on the transport.
type ScaleAction func(ctx context.Context, tokens []domain.TokenID)

// Governor is the SubscriptionGovernor.
type Governor struct {
	cfg    Config
	scorer MarketScorer
	tracker *LatencyTracker

	candidates CandidatePool
	pinned     PinnedTokens
	onExpand   ScaleAction
	onContract ScaleAction

	logger *zap.Logger

	mu        sync.Mutex
	active    map[domain.TokenID]struct{}
	lastScale time.Time
}

// New builds a Governor with an initially-active token set.
func New(cfg Config, scorer MarketScorer, tracker *LatencyTracker, candidates CandidatePool, pinned PinnedTokens, onExpand, onContract ScaleAction, initial []domain.TokenID, logger *zap.Logger) *Governor {
	active := make(map[domain.TokenID]struct{}, len(initial))
	for _, t := range initial {
		active[t] = struct{}{}
	}
	return &Governor{
		cfg:        cfg,
		scorer:     scorer,
		tracker:    tracker,
		candidates: candidates,
		pinned:     pinned,
		onExpand:   onExpand,
		onContract: onContract,
		active:     active,
		logger:     logger,
	}
}

// RecordLatency feeds one end-to-end detection latency observation into
// the rolling window the governor decides from.
func (g *Governor) RecordLatency(d time.Duration) {
	g.tracker.Record(d)
}

// Start runs the periodic check loop until ctx is cancelled.
func (g *Governor) Start(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.CheckInterval)
	defer ticker.Stop()

	g.logger.Info("governor-started", zap.Duration("check-interval", g.cfg.CheckInterval))

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("governor-stopped")
			return
		case <-ticker.C:
			g.Tick(ctx)
		}
	}
}

// Tick runs one governor decision cycle: compute the current ratio and
// expand, contract, or hold. Exported so tests (and a driving
// orchestrator with its own scheduling) can call it deterministically.
func (g *Governor) Tick(ctx context.Context) {
	p99 := g.tracker.Percentile(0.99)
	LatencyP99Seconds.Set(p99.Seconds())
	if p99 == 0 || g.cfg.TargetP99 <= 0 {
		return
	}

	g.mu.Lock()
	sinceLast := time.Since(g.lastScale)
	g.mu.Unlock()
	if sinceLast < g.cfg.Cooldown {
		return
	}

	ratio := decimal.NewFromFloat(float64(p99) / float64(g.cfg.TargetP99))

	switch {
	case ratio.LessThanOrEqual(g.cfg.ExpandThreshold):
		g.expand(ctx)
	case ratio.GreaterThanOrEqual(g.cfg.ContractThreshold):
		g.contract(ctx)
	}
}

func (g *Governor) expand(ctx context.Context) {
	g.mu.Lock()
	var pool []domain.TokenID
	for _, t := range g.candidates() {
		if _, active := g.active[t]; !active {
			pool = append(pool, t)
		}
	}
	g.mu.Unlock()

	if len(pool) == 0 {
		return
	}

	scores := g.scorer.Score(ctx, pool)
	ranked := rankDescending(pool, scores)
	step := g.cfg.ExpandStep
	if step > len(ranked) {
		step = len(ranked)
	}
	selected := ranked[:step]
	if len(selected) == 0 {
		return
	}

	g.mu.Lock()
	for _, t := range selected {
		g.active[t] = struct{}{}
	}
	g.lastScale = time.Now()
	activeCount := len(g.active)
	g.mu.Unlock()

	ActiveTokens.Set(float64(activeCount))
	ExpansionsTotal.Inc()
	g.logger.Info("governor-expanded", zap.Int("added", len(selected)), zap.Int("active", activeCount))
	g.onExpand(ctx, selected)
}

func (g *Governor) contract(ctx context.Context) {
	pinned := make(map[domain.TokenID]struct{})
	for _, t := range g.pinned() {
		pinned[t] = struct{}{}
	}

	g.mu.Lock()
	var eligible []domain.TokenID
	for t := range g.active {
		if _, isPinned := pinned[t]; !isPinned {
			eligible = append(eligible, t)
		}
	}
	g.mu.Unlock()

	if len(eligible) == 0 {
		return
	}

	scores := g.scorer.Score(ctx, eligible)
	ranked := rankAscending(eligible, scores)
	step := g.cfg.ContractStep
	if step > len(ranked) {
		step = len(ranked)
	}
	selected := ranked[:step]
	if len(selected) == 0 {
		return
	}

	g.mu.Lock()
	for _, t := range selected {
		delete(g.active, t)
	}
	g.lastScale = time.Now()
	activeCount := len(g.active)
	g.mu.Unlock()

	ActiveTokens.Set(float64(activeCount))
	ContractionsTotal.Inc()
	g.logger.Info("governor-contracted", zap.Int("removed", len(selected)), zap.Int("active", activeCount))
	g.onContract(ctx, selected)
}

// ActiveTokenSet returns a snapshot of the currently-subscribed tokens.
func (g *Governor) ActiveTokenSet() []domain.TokenID {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.TokenID, 0, len(g.active))
	for t := range g.active {
		out = append(out, t)
	}
	return out
}
