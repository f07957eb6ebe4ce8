package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PGID identifies a placement group: the owning pool plus the PG's index
// within that pool. Rendered as "<pool>.<num>" with the index in hex.
type PGID struct {
	Pool int64
	Num  uint32
}

func (p PGID) String() string {
	return fmt.Sprintf("%d.%x", p.Pool, p.Num)
}

// MarshalText lets PGID serve as a JSON map key.
func (p PGID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses the "<pool>.<hexnum>" form produced by MarshalText.
func (p *PGID) UnmarshalText(text []byte) error {
	s := string(text)
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return fmt.Errorf("invalid pg id %q", s)
	}
	pool, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid pg id %q: %w", s, err)
	}
	num, err := strconv.ParseUint(s[i+1:], 16, 32)
	if err != nil {
		return fmt.Errorf("invalid pg id %q: %w", s, err)
	}
	p.Pool = pool
	p.Num = uint32(num)
	return nil
}

// VersionPair is the recency key for a PG's stats: the map epoch the
// reporting node observed plus the node's own report sequence number.
type VersionPair struct {
	Epoch uint64
	Seq   uint64
}

// Compare returns -1, 0 or 1 ordering by epoch first, then sequence.
func (v VersionPair) Compare(o VersionPair) int {
	switch {
	case v.Epoch < o.Epoch:
		return -1
	case v.Epoch > o.Epoch:
		return 1
	case v.Seq < o.Seq:
		return -1
	case v.Seq > o.Seq:
		return 1
	}
	return 0
}

// PGState describes the reported condition of a placement group.
type PGState string

const (
	PGStateActive   PGState = "active"
	PGStateDegraded PGState = "degraded"
	PGStateStale    PGState = "stale"
	PGStateDown     PGState = "down"
)

// PGStats is one PG's statistics record as reported by a storage node.
type PGStats struct {
	ReportedEpoch uint64  `json:"reported_epoch"`
	ReportedSeq   uint64  `json:"reported_seq"`
	State         PGState `json:"state"`
	ActingPrimary int     `json:"acting_primary"`
	Bytes         int64   `json:"bytes"`
	Objects       int64   `json:"objects"`
}

// VersionPair returns the record's recency key.
func (s PGStats) VersionPair() VersionPair {
	return VersionPair{Epoch: s.ReportedEpoch, Seq: s.ReportedSeq}
}

// PingWindows holds heartbeat round-trip-time statistics for one network
// interface of one peer: three rolling averages (1min/5min/15min windows)
// with their minima and maxima, plus the last observed sample. All values
// are microseconds. A zero Last means the interface was never exercised.
type PingWindows struct {
	Avg  [3]uint32 `json:"avg"`
	Min  [3]uint32 `json:"min"`
	Max  [3]uint32 `json:"max"`
	Last uint32    `json:"last"`
}

// MaxAvg returns the worst of the three rolling averages.
func (w PingWindows) MaxAvg() uint32 {
	m := w.Avg[0]
	if w.Avg[1] > m {
		m = w.Avg[1]
	}
	if w.Avg[2] > m {
		m = w.Avg[2]
	}
	return m
}

// PeerPing carries heartbeat latency to a single peer over the cluster
// (back) and public (front) interfaces.
type PeerPing struct {
	Back  PingWindows `json:"back"`
	Front PingWindows `json:"front"`
}

// NodeStats is a storage node's self-reported summary, including heartbeat
// latency samples to each of its peers.
type NodeStats struct {
	ReportedEpoch uint64           `json:"reported_epoch"`
	KBUsed        int64            `json:"kb_used"`
	KBTotal       int64            `json:"kb_total"`
	PeerPings     map[int]PeerPing `json:"peer_pings,omitempty"`
}

// PGStatEntry is one PG's stats within a node's report batch.
type PGStatEntry struct {
	ID    PGID    `json:"id"`
	Stats PGStats `json:"stats"`
}

// StatsReport is a full statistics report from one storage node.
type StatsReport struct {
	NodeID   int           `json:"node_id"`
	MapEpoch uint64        `json:"map_epoch"`
	PGs      []PGStatEntry `json:"pgs"`
	Summary  NodeStats     `json:"summary"`
}

// PoolInfo describes a storage pool in the cluster map.
type PoolInfo struct {
	Name    string `json:"name"`
	PGCount uint32 `json:"pg_count"`
}

// NodeInfo describes a storage node's membership state in the cluster map.
type NodeInfo struct {
	Up   bool   `json:"up"`
	Addr string `json:"addr,omitempty"`
}

// ClusterMap is a full topology snapshot: cluster membership and pool
// ownership at one epoch.
type ClusterMap struct {
	Epoch     uint64             `json:"epoch"`
	CreatedAt time.Time          `json:"created_at"`
	Pools     map[int64]PoolInfo `json:"pools"`
	Nodes     map[int]NodeInfo   `json:"nodes"`
}

// NodeUp reports whether the map knows the node and lists it as up.
func (m *ClusterMap) NodeUp(id int) bool {
	n, ok := m.Nodes[id]
	return ok && n.Up
}
