// Package ports declares the interfaces to external collaborators
// SPEC_FULL §6 names but scopes out of this module: a notifier, a stats
// recorder, a relation source, and a status-file writer. The core depends
// on these interfaces only; Telegram/LLM/persistent-store implementations
// live elsewhere (or, for tests, as the trivial fakes in internal/testutil).
package ports

import (
	"context"

	"github.com/usealtoal/predictarb/internal/domain"
)

// EventKind tags a Notifier event.
type EventKind int

const (
	OpportunityDetected EventKind = iota
	Executed
	PartialFillEvent
	RiskRejected
	CircuitBreakerTripped
	Reconnected
	Disconnected
	DailySummary
)

// Event is a structured notification. Fields beyond Kind are filled in as
// applicable; Notifier implementations are expected to render what they
// understand and ignore the rest.
type Event struct {
	Kind        EventKind
	Opportunity *domain.Opportunity
	Position    *domain.Position
	Reason      string
}

// Notifier delivers structured events best-effort. A failure to notify
// must never block or fail the core's own operation.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// StatsRecordKind tags a StatsRecorder record.
type StatsRecordKind int

const (
	OpportunityRecorded StatsRecordKind = iota
	TradeOpened
	TradeClosed
)

// StatsRecord is one persisted record. Writes happen off the hot path.
type StatsRecord struct {
	Kind        StatsRecordKind
	Opportunity *domain.Opportunity
	Position    *domain.Position
}

// StatsRecorder persists records to off-thread, external storage.
type StatsRecorder interface {
	Record(ctx context.Context, record StatsRecord) error
}

// RelationSource exposes read-only relations for a market. Production of
// relations (LLM-assisted inference) is out of scope; the core only reads.
type RelationSource interface {
	RelationsFor(ctx context.Context, marketID domain.MarketID) ([]domain.Relation, error)
}

// StatusSnapshot is the periodic push StatusWriter receives.
type StatusSnapshot struct {
	StartedAt      string
	PID            int
	ConfigSummary  string
	OpenPositions  int
	CurrentExposure string
	TodayCounters  map[string]int64
	UpdatedAt      string
}

// StatusWriter receives a periodic status snapshot from the orchestrator.
type StatusWriter interface {
	WriteStatus(ctx context.Context, snapshot StatusSnapshot) error
}
