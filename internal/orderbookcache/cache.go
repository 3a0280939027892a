// Package orderbookcache holds the concurrency-safe, single-writer /
// many-reader map from TokenID to OrderBook described in SPEC_FULL §4.1.
// It is grounded on the teacher's internal/orderbook.Manager, extended
// with the GetPair/GetMany atomic multi-read operations strategies need
// for snapshot-consistent detection (testable property 3).
package orderbookcache

import (
	"sync"

	"github.com/usealtoal/predictarb/internal/domain"
)

// Cache maps TokenID to the most recent OrderBook for that token. A single
// sync.RWMutex guards the whole map; writes are brief (one map assignment).
type Cache struct {
	mu     sync.RWMutex
	books  map[domain.TokenID]domain.OrderBook
	onUpdate func(domain.TokenID)
}

// New creates an empty cache. onUpdate, if non-nil, is invoked (outside the
// lock) after every successful Update — internal/app's setup uses it to
// forward the updated token to the detection loop.
func New(onUpdate func(domain.TokenID)) *Cache {
	return &Cache{
		books:    make(map[domain.TokenID]domain.OrderBook),
		onUpdate: onUpdate,
	}
}

// Update replaces the stored book for book.TokenID. An update whose
// timestamp is not strictly newer than the stored book's timestamp is
// discarded (the ordering guarantee of SPEC_FULL §5): a slow, reordered
// snapshot must never clobber a later one. An Update with empty Bids/Asks
// is accepted — it represents a known-empty side, not an error.
func (c *Cache) Update(book domain.OrderBook) {
	c.mu.Lock()
	existing, ok := c.books[book.TokenID]
	if ok && !book.Timestamp.After(existing.Timestamp) {
		c.mu.Unlock()
		return
	}
	c.books[book.TokenID] = book
	c.mu.Unlock()

	if c.onUpdate != nil {
		c.onUpdate(book.TokenID)
	}
}

// Get returns a copy of the book for token, if present.
func (c *Cache) Get(token domain.TokenID) (domain.OrderBook, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.books[token]
	return b, ok
}

// GetPair reads two books under a single reader-lock acquisition so that
// no writer can interleave between the two reads — the guarantee the
// single-condition detector (§4.6) depends on for a consistent cost
// computation.
func (c *Cache) GetPair(a, b domain.TokenID) (domain.OrderBook, bool, domain.OrderBook, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bookA, okA := c.books[a]
	bookB, okB := c.books[b]
	return bookA, okA, bookB, okB
}

// BookOrNone is one element of a GetMany result: either a book was present
// (Ok true) or it was not (Ok false, Book zero-valued).
type BookOrNone struct {
	Book domain.OrderBook
	Ok   bool
}

// GetMany reads N books under a single reader-lock acquisition, the
// N-token generalization of GetPair used by the market-rebalancing and
// combinatorial detectors.
func (c *Cache) GetMany(tokens []domain.TokenID) []BookOrNone {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]BookOrNone, len(tokens))
	for i, t := range tokens {
		b, ok := c.books[t]
		out[i] = BookOrNone{Book: b, Ok: ok}
	}
	return out
}

// Len returns the number of tracked tokens.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.books)
}

// IsEmpty reports whether the cache tracks no tokens.
func (c *Cache) IsEmpty() bool {
	return c.Len() == 0
}
