package domain

import "time"

// PriceLevel is a single resting quote. Size must be strictly positive;
// a level with zero size is a deletion at the source and must never be
// constructed for storage in a cache.
type PriceLevel struct {
	Price Price
	Size  Volume
}

// OrderBook is one token's two-sided book at a point in time. Bids are
// sorted descending by price, asks ascending, both with no duplicate
// prices. Timestamp is the venue's event time, used to discard
// out-of-order snapshots (see OrderBookCache.Update).
type OrderBook struct {
	TokenID   TokenID
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// BestBid returns the highest bid, if any.
func (b OrderBook) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask, if any.
func (b OrderBook) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// Crossed reports whether the book is internally inconsistent
// (best bid at or above best ask). A crossed book is still stored by the
// cache; strategies must reject it as non-actionable rather than repair it.
func (b OrderBook) Crossed() bool {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return false
	}
	return bid.Price.GreaterThanOrEqual(ask.Price)
}

// Valid checks the sort-order and no-duplicate-price invariants (testable
// property 2). It does not check the cross invariant, which is a
// detection-time concern, not a storage-time one.
func (b OrderBook) Valid() bool {
	return sortedDescendingNoDupes(b.Bids) && sortedAscendingNoDupes(b.Asks)
}

func sortedDescendingNoDupes(levels []PriceLevel) bool {
	for i := 1; i < len(levels); i++ {
		if !levels[i-1].Price.GreaterThan(levels[i].Price) {
			return false
		}
	}
	return true
}

func sortedAscendingNoDupes(levels []PriceLevel) bool {
	for i := 1; i < len(levels); i++ {
		if !levels[i-1].Price.LessThan(levels[i].Price) {
			return false
		}
	}
	return true
}
