package clusterstate

import (
	"sort"

	"github.com/stratumhq/stratum/pkg/types"
)

// WindowSummary renders one value per rolling window.
type WindowSummary struct {
	Min1  uint32 `json:"1min"`
	Min5  uint32 `json:"5min"`
	Min15 uint32 `json:"15min"`
}

func windowSummary(v [3]uint32) WindowSummary {
	return WindowSummary{Min1: v[0], Min5: v[1], Min15: v[2]}
}

// RankEntry is one (from, to, interface) row of the network latency
// ranking. All latencies are microseconds.
type RankEntry struct {
	From      int           `json:"from_node"`
	To        int           `json:"to_node"`
	Interface string        `json:"interface"`
	Average   WindowSummary `json:"average"`
	Min       WindowSummary `json:"min"`
	Max       WindowSummary `json:"max"`
	Last      uint32        `json:"last"`

	// rank is the sort key: the worst of the three rolling averages.
	rank uint32
	back bool
}

// NetworkRanking is the structured document produced by the
// dump_node_network diagnostic command. Entries is never nil, so the
// rendered document is well formed even when nothing matches.
type NetworkRanking struct {
	Threshold int64       `json:"threshold"`
	Entries   []RankEntry `json:"entries"`
}

// DumpNetworkRanking computes the per-node-pair heartbeat latency ranking.
//
// A nil threshold resolves to the configured warning threshold, or failing
// that to the heartbeat grace period scaled by the warning ratio. A
// negative threshold clamps to zero; zero emits every eligible entry.
// Entries are ordered descending by their worst rolling average, ties
// broken by ascending from-node, ascending to-node, back before front.
func (s *State) DumpNetworkRanking(threshold *int64) *NetworkRanking {
	s.mu.Lock()
	defer s.mu.Unlock()

	value := s.resolveThreshold(threshold)

	entries := []RankEntry{}
	for from, node := range s.statsMap.Nodes {
		for to, ping := range node.PeerPings {
			if e, ok := rankEntry(from, to, ping.Back, true, value); ok {
				entries = append(entries, e)
			}
			// A front interface that never carried a heartbeat reports a
			// zero last sample and is suppressed entirely.
			if ping.Front.Last == 0 {
				continue
			}
			if e, ok := rankEntry(from, to, ping.Front, false, value); ok {
				entries = append(entries, e)
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.rank != b.rank {
			return a.rank > b.rank
		}
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.back && !b.back
	})

	return &NetworkRanking{Threshold: value, Entries: entries}
}

func rankEntry(from, to int, w types.PingWindows, back bool, threshold int64) (RankEntry, bool) {
	rank := w.MaxAvg()
	if threshold != 0 && int64(rank) < threshold {
		return RankEntry{}, false
	}
	iface := "front"
	if back {
		iface = "back"
	}
	return RankEntry{
		From:      from,
		To:        to,
		Interface: iface,
		Average:   windowSummary(w.Avg),
		Min:       windowSummary(w.Min),
		Max:       windowSummary(w.Max),
		Last:      w.Last,
		rank:      rank,
		back:      back,
	}, true
}

// resolveThreshold implements the default chain. Callers pass nil when the
// command carried no threshold parameter.
func (s *State) resolveThreshold(t *int64) int64 {
	if t == nil {
		v := s.thresholds.WarnSlowPingUS
		if v == 0 {
			// Seconds of grace to microseconds at the configured ratio.
			v = int64(float64(s.thresholds.HeartbeatGraceS) * s.thresholds.WarnSlowPingRatio * 1e6)
		}
		return v
	}
	if *t < 0 {
		return 0
	}
	return *t
}
