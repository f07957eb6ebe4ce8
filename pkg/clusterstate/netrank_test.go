package clusterstate

import (
	"encoding/json"
	"testing"

	"github.com/stratumhq/stratum/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

// rankState builds an engine whose aggregate holds the given node pings.
func rankState(t *testing.T, th Thresholds, nodes map[int]map[int]types.PeerPing) *State {
	t.Helper()
	s := NewState(&recordingChecker{}, th)
	for id, pings := range nodes {
		s.IngestReport(&types.StatsReport{
			NodeID:   id,
			MapEpoch: 1,
			Summary:  types.NodeStats{PeerPings: pings},
		})
	}
	s.Commit()
	return s
}

func TestDumpNetworkRankingFrontSuppression(t *testing.T) {
	// Pair (1->2): back windows [50,40,30], front windows [20,10,5] with a
	// zero last sample, meaning the front interface was never exercised.
	s := rankState(t, DefaultThresholds(), map[int]map[int]types.PeerPing{
		1: {2: {
			Back:  types.PingWindows{Avg: [3]uint32{50, 40, 30}, Last: 45},
			Front: types.PingWindows{Avg: [3]uint32{20, 10, 5}, Last: 0},
		}},
	})

	rep := s.DumpNetworkRanking(ptr(0))

	require.Len(t, rep.Entries, 1)
	e := rep.Entries[0]
	assert.Equal(t, 1, e.From)
	assert.Equal(t, 2, e.To)
	assert.Equal(t, "back", e.Interface)
	assert.Equal(t, uint32(50), e.rank)
	assert.Equal(t, WindowSummary{Min1: 50, Min5: 40, Min15: 30}, e.Average)
}

func TestDumpNetworkRankingBackNeverSuppressed(t *testing.T) {
	// A zero back last sample does not suppress the back entry.
	s := rankState(t, DefaultThresholds(), map[int]map[int]types.PeerPing{
		1: {2: {
			Back:  types.PingWindows{Avg: [3]uint32{0, 0, 0}, Last: 0},
			Front: types.PingWindows{Avg: [3]uint32{30, 20, 10}, Last: 25},
		}},
	})

	rep := s.DumpNetworkRanking(ptr(0))

	require.Len(t, rep.Entries, 2)
	assert.Equal(t, "front", rep.Entries[0].Interface)
	assert.Equal(t, "back", rep.Entries[1].Interface)
}

func TestDumpNetworkRankingThresholdInclusive(t *testing.T) {
	s := rankState(t, DefaultThresholds(), map[int]map[int]types.PeerPing{
		1: {
			2: {Back: types.PingWindows{Avg: [3]uint32{100, 90, 80}, Last: 95}},
			3: {Back: types.PingWindows{Avg: [3]uint32{50, 40, 30}, Last: 45}},
		},
	})

	t.Run("boundary value is kept", func(t *testing.T) {
		rep := s.DumpNetworkRanking(ptr(100))
		require.Len(t, rep.Entries, 1)
		assert.Equal(t, int64(100), rep.Threshold)
		assert.Equal(t, 2, rep.Entries[0].To)
	})

	t.Run("every emitted rank meets the threshold", func(t *testing.T) {
		rep := s.DumpNetworkRanking(ptr(51))
		for _, e := range rep.Entries {
			assert.GreaterOrEqual(t, int64(e.rank), int64(51))
		}
		assert.Len(t, rep.Entries, 1)
	})

	t.Run("zero threshold emits all eligible", func(t *testing.T) {
		rep := s.DumpNetworkRanking(ptr(0))
		assert.Len(t, rep.Entries, 2)
	})

	t.Run("negative clamps to zero", func(t *testing.T) {
		rep := s.DumpNetworkRanking(ptr(-5))
		assert.Equal(t, int64(0), rep.Threshold)
		assert.Len(t, rep.Entries, 2)
	})

	t.Run("document stays well formed when nothing matches", func(t *testing.T) {
		rep := s.DumpNetworkRanking(ptr(10_000))
		assert.Equal(t, int64(10_000), rep.Threshold)
		assert.NotNil(t, rep.Entries)
		assert.Empty(t, rep.Entries)

		data, err := json.Marshal(rep)
		require.NoError(t, err)
		assert.JSONEq(t, `{"threshold":10000,"entries":[]}`, string(data))
	})
}

func TestDumpNetworkRankingDefaultThreshold(t *testing.T) {
	t.Run("configured warning threshold", func(t *testing.T) {
		th := Thresholds{WarnSlowPingUS: 250, HeartbeatGraceS: 20, WarnSlowPingRatio: 0.05}
		s := rankState(t, th, nil)
		rep := s.DumpNetworkRanking(nil)
		assert.Equal(t, int64(250), rep.Threshold)
	})

	t.Run("derived from grace and ratio when unset", func(t *testing.T) {
		s := rankState(t, DefaultThresholds(), nil)
		rep := s.DumpNetworkRanking(nil)
		// 20s of grace at ratio 0.05, in microseconds.
		assert.Equal(t, int64(1_000_000), rep.Threshold)
	})

	t.Run("explicit zero overrides the default", func(t *testing.T) {
		s := rankState(t, DefaultThresholds(), map[int]map[int]types.PeerPing{
			1: {2: {Back: types.PingWindows{Avg: [3]uint32{50, 40, 30}, Last: 45}}},
		})
		rep := s.DumpNetworkRanking(ptr(0))
		assert.Equal(t, int64(0), rep.Threshold)
		assert.Len(t, rep.Entries, 1)
	})
}

func TestDumpNetworkRankingOrdering(t *testing.T) {
	// Equal ranks everywhere: order must be from asc, to asc, back first.
	even := types.PingWindows{Avg: [3]uint32{40, 40, 40}, Last: 40}
	s := rankState(t, DefaultThresholds(), map[int]map[int]types.PeerPing{
		2: {1: {Back: even, Front: even}},
		1: {3: {Back: even, Front: even}, 2: {Back: even, Front: even}},
	})
	s2 := rankState(t, DefaultThresholds(), map[int]map[int]types.PeerPing{
		1: {2: {Back: even, Front: even}, 3: {Back: even, Front: even}},
		2: {1: {Back: even, Front: even}},
	})

	rep := s.DumpNetworkRanking(ptr(0))

	type key struct {
		from, to int
		iface    string
	}
	var got []key
	for _, e := range rep.Entries {
		got = append(got, key{e.From, e.To, e.Interface})
	}
	assert.Equal(t, []key{
		{1, 2, "back"}, {1, 2, "front"},
		{1, 3, "back"}, {1, 3, "front"},
		{2, 1, "back"}, {2, 1, "front"},
	}, got)

	t.Run("descending by rank above all tie-breaks", func(t *testing.T) {
		slow := types.PingWindows{Avg: [3]uint32{10, 99, 10}, Last: 12}
		s3 := rankState(t, DefaultThresholds(), map[int]map[int]types.PeerPing{
			5: {6: {Back: slow}},
			1: {2: {Back: even}},
		})
		rep := s3.DumpNetworkRanking(ptr(0))
		require.Len(t, rep.Entries, 2)
		assert.Equal(t, 5, rep.Entries[0].From) // rank 99 beats rank 40
		assert.Equal(t, 1, rep.Entries[1].From)
	})

	t.Run("deterministic across independent engines", func(t *testing.T) {
		a, err := json.Marshal(s.DumpNetworkRanking(ptr(0)))
		require.NoError(t, err)
		b, err := json.Marshal(s2.DumpNetworkRanking(ptr(0)))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("deterministic across repeated invocations", func(t *testing.T) {
		a, err := json.Marshal(s.DumpNetworkRanking(ptr(0)))
		require.NoError(t, err)
		b, err := json.Marshal(s.DumpNetworkRanking(ptr(0)))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}
