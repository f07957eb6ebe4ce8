package clusterstate

import (
	"github.com/stratumhq/stratum/pkg/types"
)

// MapChecker computes what a topology transition implies for the aggregate.
// Implementations stage their conclusions into the supplied incremental;
// they must not mutate the stats map directly. Both methods are invoked
// under the engine lock, once per ingested cluster map.
type MapChecker interface {
	// CheckMap diffs the new map against the aggregate and stages any
	// resource-level changes the transition implies.
	CheckMap(m *types.ClusterMap, sm *StatsMap, inc *Incremental)

	// CheckDownPGs stages state changes for PGs whose reporters are gone.
	// With force set, every PG is re-evaluated rather than only those
	// touched by the transition.
	CheckDownPGs(m *types.ClusterMap, sm *StatsMap, force bool, inc *Incremental)
}

// BasicChecker is the default MapChecker: it removes PGs whose pool was
// deleted and marks PGs stale when their acting primary is no longer up.
type BasicChecker struct{}

func (BasicChecker) CheckMap(m *types.ClusterMap, sm *StatsMap, inc *Incremental) {
	for id := range sm.PGs {
		if _, ok := m.Pools[id.Pool]; !ok {
			inc.PGRemovals[id] = struct{}{}
		}
	}
	// Entries staged earlier in this cycle for pools the new map dropped
	// would outlive the removal otherwise.
	for id := range inc.PGUpdates {
		if _, ok := m.Pools[id.Pool]; !ok {
			delete(inc.PGUpdates, id)
			inc.PGRemovals[id] = struct{}{}
		}
	}
}

func (BasicChecker) CheckDownPGs(m *types.ClusterMap, sm *StatsMap, force bool, inc *Incremental) {
	for id, st := range sm.PGs {
		if _, removed := inc.PGRemovals[id]; removed {
			continue
		}
		if !force {
			continue
		}
		if st.State != types.PGStateStale && !m.NodeUp(st.ActingPrimary) {
			st.State = types.PGStateStale
			inc.PGUpdates[id] = st
		}
	}
}
