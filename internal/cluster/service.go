package cluster

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/usealtoal/predictarb/internal/domain"
)

// RecomputeFunc performs the actual cluster discovery + Frank-Wolfe
// projection for one market and writes the result into the Cache. It is
// supplied by internal/strategy's combinatorial detector so this package
// has no dependency on the strategy layer.
type RecomputeFunc func(ctx context.Context, marketID domain.MarketID)

// Config configures the debounced recomputation service.
type Config struct {
	DebounceInterval    time.Duration // default 100ms per SPEC_FULL §4.11
	MaxClustersPerCycle int
	ChannelCapacity     int
	Logger              *zap.Logger
	Recompute           RecomputeFunc
}

// Service receives "prices updated in cluster C" signals (identified here
// by the triggering MarketID) and debounces recomputation: at most one
// recompute per cluster per DebounceInterval. Excess clusters beyond
// MaxClustersPerCycle in one tick are queued FIFO for the next tick.
// Grounded on the teacher's internal/discovery.Service ticker-poll-loop
// idiom, adapted from "poll on a timer" to "debounce on a signal channel
// plus a timer".
type Service struct {
	cfg Config

	signalCh chan domain.MarketID

	mu      sync.Mutex
	pending map[domain.MarketID]struct{}
	queue   []domain.MarketID

	closeOnce sync.Once
	closeCh   chan struct{}
}

// New builds a cluster debounce service. Call Start to begin processing.
func New(cfg Config) *Service {
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = 100 * time.Millisecond
	}
	if cfg.ChannelCapacity <= 0 {
		cfg.ChannelCapacity = 1000
	}
	if cfg.MaxClustersPerCycle <= 0 {
		cfg.MaxClustersPerCycle = 50
	}
	return &Service{
		cfg:      cfg,
		signalCh: make(chan domain.MarketID, cfg.ChannelCapacity),
		pending:  make(map[domain.MarketID]struct{}),
		closeCh:  make(chan struct{}),
	}
}

// Signal enqueues a "prices changed" notification for marketID. Never
// blocks: a full channel drops the signal (the next snapshot update will
// likely re-signal anyway, and the combinatorial detector falls back to
// synchronous computation on staleness).
func (s *Service) Signal(marketID domain.MarketID) {
	select {
	case s.signalCh <- marketID:
	default:
	}
}

// Start launches the debounce loop. It returns once ctx is cancelled or
// Close is called.
func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.DebounceInterval)
	defer ticker.Stop()

	s.cfg.Logger.Info("cluster-debounce-service-started",
		zap.Duration("debounce-interval", s.cfg.DebounceInterval))

	for {
		select {
		case <-ctx.Done():
			s.cfg.Logger.Info("cluster-debounce-service-stopped")
			return
		case <-s.closeCh:
			return
		case id := <-s.signalCh:
			s.enqueue(id)
		case <-ticker.C:
			s.drainCycle(ctx)
		}
	}
}

func (s *Service) enqueue(id domain.MarketID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, already := s.pending[id]; already {
		return
	}
	s.pending[id] = struct{}{}
	s.queue = append(s.queue, id)
}

// drainCycle pops up to MaxClustersPerCycle markets off the FIFO queue and
// recomputes each; anything beyond the cap stays queued for next tick.
func (s *Service) drainCycle(ctx context.Context) {
	s.mu.Lock()
	n := s.cfg.MaxClustersPerCycle
	if n > len(s.queue) {
		n = len(s.queue)
	}
	batch := s.queue[:n]
	s.queue = s.queue[n:]
	for _, id := range batch {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	for _, id := range batch {
		s.cfg.Recompute(ctx, id)
	}
}

// Close stops the debounce loop.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.closeCh) })
}
