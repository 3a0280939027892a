package storage

import (
	"context"

	"github.com/usealtoal/predictarb/internal/ports"
)

// Storage is the ports.StatsRecorder persisted off the hot path by the
// orchestrator: every detected opportunity and every resulting trade goes
// through Record, whichever backend is configured.
type Storage interface {
	ports.StatsRecorder

	// Close closes the storage connection.
	Close() error
}
