package domain

import (
	"strings"
	"time"
)

// Outcome is one token of a market, in the order the exchange adapter
// presented it. Strategies index into Market.Outcomes by position; name
// lookup is reserved for adapter-boundary bootstrap (see GetTokenByOutcome).
type Outcome struct {
	TokenID TokenID
	Name    string
}

// Market is a prediction-market question with its ordered outcomes and the
// payout a winning outcome token redeems for.
type Market struct {
	ID       MarketID
	Slug     string
	Question string
	Outcomes []Outcome
	Payout   Price
	EndDate  time.Time
}

// Binary reports whether this market has exactly two outcomes.
func (m *Market) Binary() bool {
	return len(m.Outcomes) == 2
}

// GetTokenByOutcome looks an outcome up by its display name, case
// insensitively. This is adapter-boundary bootstrap only (subscribing to
// "YES"/"NO" by name at startup) — strategies must never call this; they
// index Outcomes by position instead, per the spec's outcome-name
// polymorphism note.
func (m *Market) GetTokenByOutcome(name string) *Outcome {
	for i := range m.Outcomes {
		if strings.EqualFold(m.Outcomes[i].Name, name) {
			return &m.Outcomes[i]
		}
	}
	return nil
}

// TokenIDs returns the ordered token ids for this market's outcomes.
func (m *Market) TokenIDs() []TokenID {
	ids := make([]TokenID, len(m.Outcomes))
	for i, o := range m.Outcomes {
		ids[i] = o.TokenID
	}
	return ids
}

// MarketRegistry is the authoritative store of known markets plus a
// TokenID -> Market lookup index. The list is the owner; the index holds
// lookup keys only, never shared ownership, so Opportunity/Position values
// that hold a MarketID outlive any registry mutation safely.
type MarketRegistry struct {
	markets []*Market
	byID    map[MarketID]*Market
	byToken map[TokenID]*Market
}

// NewMarketRegistry builds an empty registry.
func NewMarketRegistry() *MarketRegistry {
	return &MarketRegistry{
		byID:    make(map[MarketID]*Market),
		byToken: make(map[TokenID]*Market),
	}
}

// Add registers a market, indexing all of its outcome tokens. Never
// removes entries below the set of tokens with open positions; callers
// (the discovery/governor layer) are responsible for respecting that
// invariant before calling Remove.
func (r *MarketRegistry) Add(m *Market) {
	if _, exists := r.byID[m.ID]; !exists {
		r.markets = append(r.markets, m)
	}
	r.byID[m.ID] = m
	for _, o := range m.Outcomes {
		r.byToken[o.TokenID] = m
	}
}

// Get returns a market by id.
func (r *MarketRegistry) Get(id MarketID) (*Market, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// GetByToken performs the reverse lookup the detector needs to map an
// inbound book update back to its owning market.
func (r *MarketRegistry) GetByToken(token TokenID) (*Market, bool) {
	m, ok := r.byToken[token]
	return m, ok
}

// All returns every registered market, in registration order.
func (r *MarketRegistry) All() []*Market {
	out := make([]*Market, len(r.markets))
	copy(out, r.markets)
	return out
}

// Len returns the number of registered markets.
func (r *MarketRegistry) Len() int { return len(r.markets) }
