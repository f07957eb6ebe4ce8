package clusterstate

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stratumhq/stratum/pkg/log"
	"github.com/stratumhq/stratum/pkg/metrics"
	"github.com/stratumhq/stratum/pkg/types"
)

// Thresholds configures the latency ranking defaults.
type Thresholds struct {
	// WarnSlowPingUS is the slow-ping warning threshold in microseconds.
	// Zero means derive one from the heartbeat grace period.
	WarnSlowPingUS int64

	// HeartbeatGraceS is the heartbeat grace period in seconds.
	HeartbeatGraceS int64

	// WarnSlowPingRatio scales the grace period into a warning threshold.
	WarnSlowPingRatio float64
}

// DefaultThresholds mirrors the stock configuration: no explicit warning
// threshold, 20s grace at a 0.05 ratio (1s in microseconds).
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarnSlowPingUS:    0,
		HeartbeatGraceS:   20,
		WarnSlowPingRatio: 0.05,
	}
}

// State is the merge engine: it owns the versioned aggregate, the pending
// delta and the pool existence filter, all guarded by one exclusive lock.
// The three structures are never exposed directly; every public method
// acquires the lock for its full duration.
type State struct {
	mu sync.Mutex

	statsMap      *StatsMap
	pending       *Incremental
	existingPools map[int64]struct{}

	checker    MapChecker
	thresholds Thresholds
	logger     zerolog.Logger
}

// NewState creates a merge engine with an empty aggregate. The checker is
// the topology-diff collaborator invoked on every cluster map ingestion.
func NewState(checker MapChecker, th Thresholds) *State {
	sm := NewStatsMap()
	return &State{
		statsMap:      sm,
		pending:       newIncremental(sm.Version + 1),
		existingPools: make(map[int64]struct{}),
		checker:       checker,
		thresholds:    th,
		logger:        log.WithComponent("clusterstate"),
	}
}

// IngestReport stages one node's stats report into the pending delta.
//
// Per-PG entries are dropped silently when their pool is no longer in the
// cluster map (an expected race with topology propagation) or when the
// aggregate already holds stats at least as recent - latest version pair
// wins, not latest arrival. The node summary is always staged; within one
// delta cycle the last report from a node wins. Nothing is committed here.
func (s *State) IngestReport(r *types.StatsReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := r.Summary
	summary.ReportedEpoch = r.MapEpoch
	s.pending.NodeUpdates[r.NodeID] = summary
	metrics.ReportsIngested.Inc()

	for _, e := range r.PGs {
		if _, ok := s.existingPools[e.ID.Pool]; !ok {
			// Reported against a pool the latest map no longer has.
			s.logger.Debug().
				Stringer("pg", e.ID).
				Uint64("epoch", e.Stats.ReportedEpoch).
				Uint64("seq", e.Stats.ReportedSeq).
				Msg("dropping entry for unknown pool")
			metrics.ReportEntriesDropped.WithLabelValues(metrics.DropUnknownPool).Inc()
			continue
		}
		if cur, ok := s.statsMap.PGs[e.ID]; ok &&
			cur.VersionPair().Compare(e.Stats.VersionPair()) >= 0 {
			// Already heard newer (or the same) stats, possibly from
			// another node reporting on the same PG.
			s.logger.Debug().
				Stringer("pg", e.ID).
				Uint64("have_epoch", cur.ReportedEpoch).
				Uint64("have_seq", cur.ReportedSeq).
				Msg("dropping stale entry")
			metrics.ReportEntriesDropped.WithLabelValues(metrics.DropStale).Inc()
			continue
		}
		if staged, ok := s.pending.PGUpdates[e.ID]; ok &&
			staged.VersionPair().Compare(e.Stats.VersionPair()) >= 0 {
			// A newer record is already staged in this cycle; delivery
			// order within a cycle must not let the older one win.
			metrics.ReportEntriesDropped.WithLabelValues(metrics.DropStale).Inc()
			continue
		}
		s.pending.PGUpdates[e.ID] = e.Stats
	}
}

// IngestMap applies a full topology snapshot: the pool existence filter is
// rebuilt, the collaborator checks stage whatever the topology transition
// implies into the pending delta, and the delta is committed - all inside
// one lock hold so no reader ever observes a half-applied transition.
func (s *State) IngestMap(m *types.ClusterMap) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checker.CheckMap(m, s.statsMap, s.pending)

	// Rebuild the pool filter in synchrony with this map so report
	// filtering and the topology transition are never observed apart.
	s.existingPools = make(map[int64]struct{}, len(m.Pools))
	for id := range m.Pools {
		s.existingPools[id] = struct{}{}
	}

	// Brute force: re-evaluate every PG rather than only those touched
	// by nodes that changed state in this map.
	s.checker.CheckDownPGs(m, s.statsMap, true, s.pending)

	s.commitLocked()
	metrics.MapsApplied.Inc()
	s.logger.Debug().Uint64("epoch", m.Epoch).Uint64("version", s.statsMap.Version).
		Msg("cluster map applied")
}

// Commit folds the pending delta into the aggregate, bumps the version and
// starts a fresh delta. Driven by the manager's periodic tick.
func (s *State) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitLocked()
}

func (s *State) commitLocked() {
	start := time.Now()
	s.pending.Stamp = start
	s.statsMap.ApplyIncremental(s.pending)
	s.pending = newIncremental(s.statsMap.Version + 1)
	metrics.CommitsTotal.Inc()
	metrics.CommitDuration.Observe(time.Since(start).Seconds())
}

// Version returns the aggregate's current version.
func (s *State) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsMap.Version
}

// PGCount returns the number of PGs in the aggregate.
func (s *State) PGCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.statsMap.PGs)
}

// NodeCount returns the number of nodes in the aggregate.
func (s *State) NodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.statsMap.Nodes)
}

// PGStats returns one PG's stats, if present.
func (s *State) PGStats(id types.PGID) (types.PGStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statsMap.PGs[id]
	return st, ok
}

// NodeStats returns one node's summary, if present.
func (s *State) NodeStats(id int) (types.NodeStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statsMap.Nodes[id]
	return st, ok
}

// Snapshot returns a deep copy of the aggregate for checkpointing.
func (s *State) Snapshot() *StatsMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsMap.Clone()
}

// Restore replaces the aggregate with a previously checkpointed copy and
// resets the pending delta to target the next version. Intended for
// startup, before any ingestion begins.
func (s *State) Restore(sm *StatsMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sm.PGs == nil {
		sm.PGs = make(map[types.PGID]types.PGStats)
	}
	if sm.Nodes == nil {
		sm.Nodes = make(map[int]types.NodeStats)
	}
	s.statsMap = sm
	s.pending = newIncremental(sm.Version + 1)
}
