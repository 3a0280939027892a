// Package position implements the PositionTracker of SPEC_FULL §4.14: a
// mutable in-memory collection of Positions guarded by a single writer
// lock, matching the shared-resource policy of §5.
package position

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/usealtoal/predictarb/internal/domain"
)

// Tracker is the PositionTracker.
type Tracker struct {
	mu        sync.RWMutex
	positions map[domain.PositionID]*domain.Position
	nextID    int64
}

// NewTracker builds an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{positions: make(map[domain.PositionID]*domain.Position)}
}

// NextID returns a monotonically-increasing PositionID.
func (t *Tracker) NextID() domain.PositionID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	return domain.PositionID(t.nextID)
}

// Add records a newly-opened position.
func (t *Tracker) Add(p *domain.Position) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.positions[p.ID] = p
}

// RecordPartial marks a position as partially filled: one leg succeeded
// (filledLeg) and the remainder is missing, per §4.13 step 4's
// human-intervention path.
func (t *Tracker) RecordPartial(id domain.PositionID, filledLeg, missingLeg domain.TokenID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.positions[id]
	if !ok {
		return
	}
	p.Status = domain.StatusPartialFill
	p.FilledLeg = filledLeg
	p.MissingLeg = missingLeg
}

// Close marks a position closed with a realized PnL.
func (t *Tracker) Close(id domain.PositionID, pnl domain.Price) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.positions[id]
	if !ok {
		return
	}
	p.Status = domain.StatusClosed
	p.PnL = pnl
	p.ClosedAt = time.Now()
}

// OpenPositions returns every position not yet Closed.
func (t *Tracker) OpenPositions() []domain.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.Position, 0, len(t.positions))
	for _, p := range t.positions {
		if p.Status != domain.StatusClosed {
			out = append(out, *p)
		}
	}
	return out
}

// TotalExposure sums EntryCost across Open and PartialFill positions.
func (t *Tracker) TotalExposure() domain.Volume {
	t.mu.RLock()
	defer t.mu.RUnlock()
	total := decimal.Zero
	for _, p := range t.positions {
		if p.Status != domain.StatusClosed {
			total = total.Add(p.EntryCost)
		}
	}
	return total
}

// ExposureFor sums EntryCost across Open and PartialFill positions that
// reference marketID, satisfying risk.ExposureSource.
func (t *Tracker) ExposureFor(marketID domain.MarketID) domain.Volume {
	t.mu.RLock()
	defer t.mu.RUnlock()
	total := decimal.Zero
	for _, p := range t.positions {
		if p.Status == domain.StatusClosed {
			continue
		}
		for _, m := range p.MarketIDs {
			if m == marketID {
				total = total.Add(p.EntryCost)
				break
			}
		}
	}
	return total
}

// OpenTokens returns every TokenID referenced by a non-closed position,
// the invariant feed for governor.PinnedTokens (§4.4).
func (t *Tracker) OpenTokens() []domain.TokenID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := make(map[domain.TokenID]struct{})
	var out []domain.TokenID
	for _, p := range t.positions {
		if p.Status == domain.StatusClosed {
			continue
		}
		for _, leg := range p.Legs {
			if _, ok := seen[leg.TokenID]; !ok {
				seen[leg.TokenID] = struct{}{}
				out = append(out, leg.TokenID)
			}
		}
	}
	return out
}
