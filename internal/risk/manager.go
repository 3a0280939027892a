// Package risk implements the pre-execution gate of SPEC_FULL §4.12: edge
// and profit floors, per-market and total exposure limits, slippage
// re-validation against the live cache, and circuit-breaker consultation.
package risk

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/internal/orderbookcache"
	"github.com/usealtoal/predictarb/internal/ports"
)

// RejectionKind enumerates the reasons RiskManager.Check can reject an
// opportunity, per §4.12.
type RejectionKind int

const (
	// None is the zero value for an approved decision.
	None RejectionKind = iota
	EdgeTooSmall
	ProfitBelowThreshold
	PositionLimit
	ExposureLimit
	Slippage
	CircuitBreaker
)

func (k RejectionKind) String() string {
	switch k {
	case EdgeTooSmall:
		return "edge_too_small"
	case ProfitBelowThreshold:
		return "profit_below_threshold"
	case PositionLimit:
		return "position_limit"
	case ExposureLimit:
		return "exposure_limit"
	case Slippage:
		return "slippage"
	case CircuitBreaker:
		return "circuit_breaker"
	default:
		return "none"
	}
}

// Decision is the outcome of a risk check.
type Decision struct {
	Approved bool
	Kind     RejectionKind
	Reason   string
}

// ExposureSource reports current per-market and total exposure. A
// position.Tracker satisfies this interface structurally; risk does not
// import internal/position to avoid a dependency cycle back toward
// execution.
type ExposureSource interface {
	ExposureFor(marketID domain.MarketID) domain.Volume
	TotalExposure() domain.Volume
}

// BalanceBreaker is the supplemented wallet-balance circuit breaker of
// §1.3, matched to the teacher's BalanceCircuitBreaker.IsEnabled shape.
type BalanceBreaker interface {
	IsEnabled() bool
}

// Config holds the limits from the risk section of §6's configuration list.
type Config struct {
	MinEdge              decimal.Decimal
	MinProfitThreshold   decimal.Decimal
	MaxPositionPerMarket decimal.Decimal
	MaxTotalExposure     decimal.Decimal
	MaxSlippage          decimal.Decimal
}

// Manager is the RiskManager of §4.12.
type Manager struct {
	cfg              Config
	cache            *orderbookcache.Cache
	exposure         ExposureSource
	executionBreaker *FailureBreaker
	balanceBreaker   BalanceBreaker
	notifier         ports.Notifier
	logger           *zap.Logger
}

// New builds a Manager. balanceBreaker may be nil when the wallet-balance
// breaker is not configured (paper/dry-run mode); Check then skips that
// input.
func New(cfg Config, cache *orderbookcache.Cache, exposure ExposureSource, executionBreaker *FailureBreaker, balanceBreaker BalanceBreaker, notifier ports.Notifier, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:              cfg,
		cache:            cache,
		exposure:         exposure,
		executionBreaker: executionBreaker,
		balanceBreaker:   balanceBreaker,
		notifier:         notifier,
		logger:           logger,
	}
}

// Check runs every gate of §4.12 in order, short-circuiting on the first
// failure, and emits a RiskRejected notification on rejection.
func (m *Manager) Check(ctx context.Context, opp *domain.Opportunity) Decision {
	if m.executionBreaker != nil && m.executionBreaker.Tripped() {
		return m.reject(ctx, opp, CircuitBreaker, "execution-failure circuit breaker is tripped")
	}
	if m.balanceBreaker != nil && !m.balanceBreaker.IsEnabled() {
		return m.reject(ctx, opp, CircuitBreaker, "wallet-balance circuit breaker is disabled")
	}

	if opp.Edge.LessThan(m.cfg.MinEdge) {
		return m.reject(ctx, opp, EdgeTooSmall, "edge below configured minimum")
	}
	if opp.ExpectedProfit.LessThan(m.cfg.MinProfitThreshold) {
		return m.reject(ctx, opp, ProfitBelowThreshold, "expected profit below threshold")
	}

	positionCost := opp.TotalCost.Mul(opp.Volume)
	for _, marketID := range opp.MarketIDs {
		current := m.exposure.ExposureFor(marketID)
		if current.Add(positionCost).GreaterThan(m.cfg.MaxPositionPerMarket) {
			return m.reject(ctx, opp, PositionLimit, "per-market position limit exceeded")
		}
	}

	if m.exposure.TotalExposure().Add(positionCost).GreaterThan(m.cfg.MaxTotalExposure) {
		return m.reject(ctx, opp, ExposureLimit, "total exposure limit exceeded")
	}

	if kind, ok := m.checkSlippage(opp); !ok {
		return m.reject(ctx, opp, kind, "current ask deviates from detected ask beyond max slippage")
	}

	ApprovalsTotal.Inc()
	return Decision{Approved: true}
}

// checkSlippage re-fetches the current best ask for every leg and rejects
// if any has moved by more than MaxSlippage relative to the price the
// opportunity was detected at.
func (m *Manager) checkSlippage(opp *domain.Opportunity) (RejectionKind, bool) {
	for _, leg := range opp.Legs {
		book, ok := m.cache.Get(leg.TokenID)
		if !ok {
			return Slippage, false
		}
		ask, ok := book.BestAsk()
		if !ok {
			return Slippage, false
		}
		if leg.AskPrice.IsZero() {
			continue
		}
		deviation := ask.Price.Sub(leg.AskPrice).Abs().Div(leg.AskPrice)
		if deviation.GreaterThan(m.cfg.MaxSlippage) {
			return Slippage, false
		}
	}
	return None, true
}

func (m *Manager) reject(ctx context.Context, opp *domain.Opportunity, kind RejectionKind, reason string) Decision {
	RejectionsTotal.WithLabelValues(kind.String()).Inc()
	m.logger.Info("risk-rejected",
		zap.String("opportunity-id", opp.ID),
		zap.String("kind", kind.String()),
		zap.String("reason", reason))

	if m.notifier != nil {
		m.notifier.Notify(ctx, ports.Event{
			Kind:        ports.RiskRejected,
			Opportunity: opp,
			Reason:      reason,
		})
	}

	return Decision{Approved: false, Kind: kind, Reason: reason}
}
