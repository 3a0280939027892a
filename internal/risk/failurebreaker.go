package risk

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// FailureBreaker is the execution-failure circuit breaker of SPEC_FULL §7
// and scenario S6: it counts consecutive Failed executions and, once the
// count reaches MaxConsecutiveFailures, trips for CooldownDuration. A
// successful execution resets the counter to zero. Shaped after the
// teacher's BalanceCircuitBreaker (internal/circuitbreaker/breaker.go) but
// trips on execution outcomes rather than wallet balance.
type FailureBreaker struct {
	mu                      sync.Mutex
	consecutiveFailures     int
	maxConsecutiveFailures  int
	cooldown                time.Duration
	trippedUntil            time.Time
	logger                  *zap.Logger
}

// NewFailureBreaker builds a breaker that trips after maxConsecutiveFailures
// and stays tripped for cooldown.
func NewFailureBreaker(maxConsecutiveFailures int, cooldown time.Duration, logger *zap.Logger) *FailureBreaker {
	if maxConsecutiveFailures <= 0 {
		maxConsecutiveFailures = 1
	}
	return &FailureBreaker{
		maxConsecutiveFailures: maxConsecutiveFailures,
		cooldown:               cooldown,
		logger:                 logger,
	}
}

// RecordSuccess resets the consecutive-failure counter.
func (b *FailureBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
	FailureBreakerConsecutiveFailures.Set(0)
}

// RecordFailure increments the consecutive-failure counter and trips the
// breaker once it reaches the configured maximum.
func (b *FailureBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	FailureBreakerConsecutiveFailures.Set(float64(b.consecutiveFailures))

	if b.consecutiveFailures >= b.maxConsecutiveFailures {
		b.trippedUntil = time.Now().Add(b.cooldown)
		b.consecutiveFailures = 0
		FailureBreakerTripsTotal.Inc()
		b.logger.Warn("execution-circuit-breaker-tripped",
			zap.Duration("cooldown", b.cooldown),
			zap.Int("max-consecutive-failures", b.maxConsecutiveFailures))
	}
}

// Tripped reports whether the breaker is currently in its cooldown window.
func (b *FailureBreaker) Tripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Now().Before(b.trippedUntil)
}
