package storage

import (
	"github.com/stratumhq/stratum/pkg/clusterstate"
)

// Store persists stats map checkpoints across manager restarts.
type Store interface {
	// SaveCheckpoint writes the given snapshot, replacing any previous one.
	SaveCheckpoint(sm *clusterstate.StatsMap) error

	// LoadCheckpoint returns the last saved snapshot, or (nil, nil) when
	// none has been written yet.
	LoadCheckpoint() (*clusterstate.StatsMap, error)

	// Close releases the underlying database.
	Close() error
}
