package clusterstate

import (
	"fmt"
	"time"

	"github.com/stratumhq/stratum/pkg/types"
)

// StatsMap is the authoritative, versioned aggregate of cluster statistics:
// per-PG stats keyed by PG id and per-node summaries keyed by node id. The
// version increases by exactly one per applied incremental and is never
// mutated anywhere else.
type StatsMap struct {
	Version uint64                       `json:"version"`
	Stamp   time.Time                    `json:"stamp"`
	PGs     map[types.PGID]types.PGStats `json:"pgs"`
	Nodes   map[int]types.NodeStats      `json:"nodes"`
}

// NewStatsMap returns an empty aggregate at version 0.
func NewStatsMap() *StatsMap {
	return &StatsMap{
		PGs:   make(map[types.PGID]types.PGStats),
		Nodes: make(map[int]types.NodeStats),
	}
}

// Incremental accumulates staged changes between commits. It is created
// empty with a fixed target version, filled during ingestion, consumed
// exactly once by apply, then discarded.
type Incremental struct {
	Version     uint64
	Stamp       time.Time
	PGUpdates   map[types.PGID]types.PGStats
	PGRemovals  map[types.PGID]struct{}
	NodeUpdates map[int]types.NodeStats
}

func newIncremental(target uint64) *Incremental {
	return &Incremental{
		Version:     target,
		PGUpdates:   make(map[types.PGID]types.PGStats),
		PGRemovals:  make(map[types.PGID]struct{}),
		NodeUpdates: make(map[int]types.NodeStats),
	}
}

// ApplyIncremental folds the staged updates into the map and bumps the
// version. The incremental's target version must be exactly Version+1; a
// mismatch is a programming error in the surrounding system, not a runtime
// condition, and panics.
func (sm *StatsMap) ApplyIncremental(inc *Incremental) {
	if inc.Version != sm.Version+1 {
		panic(fmt.Sprintf("clusterstate: incremental version %d does not follow stats map version %d",
			inc.Version, sm.Version))
	}

	for id, st := range inc.PGUpdates {
		sm.PGs[id] = st
	}
	// Removals win over updates staged in the same cycle.
	for id := range inc.PGRemovals {
		delete(sm.PGs, id)
	}
	for id, st := range inc.NodeUpdates {
		sm.Nodes[id] = st
	}

	sm.Version = inc.Version
	sm.Stamp = inc.Stamp
}

// Clone returns a deep copy, used for checkpointing without holding the
// engine lock during serialization.
func (sm *StatsMap) Clone() *StatsMap {
	out := &StatsMap{
		Version: sm.Version,
		Stamp:   sm.Stamp,
		PGs:     make(map[types.PGID]types.PGStats, len(sm.PGs)),
		Nodes:   make(map[int]types.NodeStats, len(sm.Nodes)),
	}
	for id, st := range sm.PGs {
		out.PGs[id] = st
	}
	for id, st := range sm.Nodes {
		cp := st
		if st.PeerPings != nil {
			cp.PeerPings = make(map[int]types.PeerPing, len(st.PeerPings))
			for peer, ping := range st.PeerPings {
				cp.PeerPings[peer] = ping
			}
		}
		out.Nodes[id] = cp
	}
	return out
}
