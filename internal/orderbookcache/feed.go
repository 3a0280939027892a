package orderbookcache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/usealtoal/predictarb/internal/domain"
	"github.com/usealtoal/predictarb/pkg/types"
)

// Feed translates the exchange's wire-level OrderbookMessage stream into
// the full two-sided domain.OrderBook snapshots Cache.Update expects.
// It is grounded on the teacher's internal/orderbook.Manager book/
// price_change split, extended to retain every price level instead of
// only the best one: strategies need the full depth to size a trade, not
// just the top of book.
type Feed struct {
	cache  *Cache
	logger *zap.Logger

	mu    sync.Mutex
	books map[domain.TokenID]map[bool]map[string]domain.Volume // token -> isBid -> price string -> size

	msgChan <-chan *types.OrderbookMessage
}

// NewFeed builds a Feed reading from msgChan and writing into cache.
func NewFeed(cache *Cache, msgChan <-chan *types.OrderbookMessage, logger *zap.Logger) *Feed {
	return &Feed{
		cache:   cache,
		logger:  logger,
		books:   make(map[domain.TokenID]map[bool]map[string]domain.Volume),
		msgChan: msgChan,
	}
}

// Run drains msgChan until ctx is done or the channel closes.
func (f *Feed) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-f.msgChan:
			if !ok {
				return
			}
			err := f.Apply(msg)
			if err != nil {
				f.logger.Warn("orderbookcache-feed-apply-error",
					zap.Error(err),
					zap.String("event-type", msg.EventType),
					zap.String("asset-id", msg.AssetID))
			}
		}
	}
}

// Apply translates and applies one wire message, writing the resulting
// book into the cache. Message kinds other than "book"/"price_change"
// (last_trade_price, etc.) are ignored.
func (f *Feed) Apply(msg *types.OrderbookMessage) error {
	switch msg.EventType {
	case "book":
		return f.applyBook(msg)
	case "price_change":
		return f.applyPriceChange(msg)
	default:
		return nil
	}
}

func (f *Feed) applyBook(msg *types.OrderbookMessage) error {
	bids, err := toPriceMap(msg.Bids)
	if err != nil {
		return fmt.Errorf("parse bids: %w", err)
	}
	asks, err := toPriceMap(msg.Asks)
	if err != nil {
		return fmt.Errorf("parse asks: %w", err)
	}

	token := domain.TokenID(msg.AssetID)

	f.mu.Lock()
	f.books[token] = map[bool]map[string]domain.Volume{true: bids, false: asks}
	f.mu.Unlock()

	f.publish(token, msg.Timestamp)
	return nil
}

func (f *Feed) applyPriceChange(msg *types.OrderbookMessage) error {
	token := domain.TokenID(msg.AssetID)

	f.mu.Lock()
	sides, ok := f.books[token]
	if !ok {
		sides = map[bool]map[string]domain.Volume{true: {}, false: {}}
		f.books[token] = sides
	}

	err := mergeLevels(sides[true], msg.Bids)
	if err != nil {
		f.mu.Unlock()
		return fmt.Errorf("merge bids: %w", err)
	}
	err = mergeLevels(sides[false], msg.Asks)
	if err != nil {
		f.mu.Unlock()
		return fmt.Errorf("merge asks: %w", err)
	}
	f.mu.Unlock()

	f.publish(token, msg.Timestamp)
	return nil
}

// publish snapshots the held book for token and writes it into the cache.
// Timestamps on the wire are Unix milliseconds; a zero timestamp falls
// back to the local clock rather than losing the ordering guarantee
// Cache.Update relies on.
func (f *Feed) publish(token domain.TokenID, wireTimestamp int64) {
	ts := time.Now()
	if wireTimestamp > 0 {
		ts = time.UnixMilli(wireTimestamp)
	}

	f.mu.Lock()
	sides := f.books[token]
	bids := toSortedLevels(sides[true], true)
	asks := toSortedLevels(sides[false], false)
	f.mu.Unlock()

	f.cache.Update(domain.OrderBook{
		TokenID:   token,
		Bids:      bids,
		Asks:      asks,
		Timestamp: ts,
	})
}

func toPriceMap(levels []types.PriceLevel) (map[string]domain.Volume, error) {
	out := make(map[string]domain.Volume, len(levels))
	err := mergeLevels(out, levels)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// mergeLevels applies a set of wire levels onto a held price->size map.
// A level with size zero deletes that price, matching the venue's
// incremental-update convention.
func mergeLevels(held map[string]domain.Volume, levels []types.PriceLevel) error {
	for _, lvl := range levels {
		size, err := domain.ParseVolume(lvl.Size)
		if err != nil {
			return err
		}
		if size.IsZero() {
			delete(held, lvl.Price)
			continue
		}
		held[lvl.Price] = size
	}
	return nil
}

func toSortedLevels(held map[string]domain.Volume, descending bool) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(held))
	for priceStr, size := range held {
		price, err := domain.ParsePrice(priceStr)
		if err != nil {
			continue
		}
		out = append(out, domain.PriceLevel{Price: price, Size: size})
	}
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price.GreaterThan(out[j].Price)
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	return out
}
