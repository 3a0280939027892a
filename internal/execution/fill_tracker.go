package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/usealtoal/predictarb/internal/domain"
)

// FillStatus is the post-submission state of one leg order. pkg/types
// never defined an equivalent for the per-leg protocol, so it lives here,
// grounded on the query-response fields the teacher's OrderQueryResponse
// already exposes.
type FillStatus struct {
	OrderID      domain.OrderID
	TokenID      domain.TokenID
	OriginalSize domain.Volume
	SizeFilled   domain.Volume
	ActualPrice  domain.Price
	Status       string
	FullyFilled  bool
	VerifiedAt   time.Time
	Err          error
}

// FillTracker verifies order fills with exponential backoff.
type FillTracker struct {
	orderClient    *OrderClient
	logger         *zap.Logger
	initialBackoff time.Duration
	maxBackoff     time.Duration
	backoffMult    float64
	fillTimeout    time.Duration
}

// FillTrackerConfig holds configuration for fill verification.
type FillTrackerConfig struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffMult    float64
	FillTimeout    time.Duration
}

// NewFillTracker creates a new FillTracker instance.
func NewFillTracker(orderClient *OrderClient, logger *zap.Logger, cfg *FillTrackerConfig) *FillTracker {
	return &FillTracker{
		orderClient:    orderClient,
		logger:         logger,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		backoffMult:    cfg.BackoffMult,
		fillTimeout:    cfg.FillTimeout,
	}
}

// VerifyFills polls each order until it is fully filled or fillTimeout
// elapses, with exponential backoff between rounds.
func (ft *FillTracker) VerifyFills(ctx context.Context, legs []FillRequest) ([]FillStatus, error) {
	startTime := time.Now()
	timeout := time.NewTimer(ft.fillTimeout)
	defer timeout.Stop()

	statuses := make([]FillStatus, len(legs))
	for i, leg := range legs {
		statuses[i] = FillStatus{
			OrderID:      leg.OrderID,
			TokenID:      leg.TokenID,
			OriginalSize: leg.Size,
		}
	}

	backoff := ft.initialBackoff
	attempt := 1

	for {
		allFilled := true
		for i := range statuses {
			if statuses[i].FullyFilled {
				continue
			}

			resp, err := ft.orderClient.GetOrder(ctx, string(statuses[i].OrderID))
			if err != nil {
				ft.logger.Warn("order-query-failed-retrying",
					zap.String("order-id", string(statuses[i].OrderID)),
					zap.Error(err),
					zap.Int("attempt", attempt))
				allFilled = false
				continue
			}

			statuses[i].Status = resp.Status
			statuses[i].SizeFilled = decimal.NewFromFloat(resp.SizeFilled)
			statuses[i].ActualPrice = decimal.NewFromFloat(resp.Price)
			statuses[i].VerifiedAt = time.Now()

			tolerance := decimal.NewFromFloat(0.001)
			if statuses[i].SizeFilled.GreaterThanOrEqual(statuses[i].OriginalSize.Sub(tolerance)) {
				statuses[i].FullyFilled = true
				ft.logger.Info("order-fully-filled",
					zap.String("order-id", string(statuses[i].OrderID)),
					zap.String("token-id", string(statuses[i].TokenID)),
					zap.Duration("duration", time.Since(startTime)))
			} else {
				allFilled = false
			}
		}

		if allFilled {
			ft.logger.Info("all-legs-fully-filled",
				zap.Int("leg-count", len(legs)),
				zap.Duration("total-duration", time.Since(startTime)),
				zap.Int("attempts", attempt))
			return statuses, nil
		}

		select {
		case <-timeout.C:
			ft.logger.Warn("fill-verification-timeout",
				zap.Int("leg-count", len(legs)),
				zap.Duration("timeout", ft.fillTimeout),
				zap.Int("attempts", attempt))
			for i := range statuses {
				if !statuses[i].FullyFilled {
					statuses[i].Err = fmt.Errorf("fill verification timeout after %s", ft.fillTimeout)
				}
			}
			return statuses, nil

		case <-ctx.Done():
			ft.logger.Warn("fill-verification-canceled", zap.Error(ctx.Err()), zap.Int("attempts", attempt))
			return statuses, ctx.Err()

		case <-time.After(backoff):
			attempt++
			backoff = time.Duration(float64(backoff) * ft.backoffMult)
			if backoff > ft.maxBackoff {
				backoff = ft.maxBackoff
			}
		}
	}
}

// FillRequest identifies one leg order to poll.
type FillRequest struct {
	OrderID domain.OrderID
	TokenID domain.TokenID
	Size    domain.Volume
}
