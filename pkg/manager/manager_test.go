package manager

import (
	"testing"
	"time"

	"github.com/stratumhq/stratum/pkg/clusterstate"
	"github.com/stratumhq/stratum/pkg/events"
	"github.com/stratumhq/stratum/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig keeps the periodic loops quiet so tests control every commit;
// only the final checkpoint taken by Stop matters here.
func testConfig(dir string) *Config {
	return &Config{
		DataDir:            dir,
		CommitInterval:     time.Hour,
		CheckpointInterval: time.Hour,
		Thresholds:         clusterstate.DefaultThresholds(),
	}
}

func clusterMap(epoch uint64, pools ...int64) *types.ClusterMap {
	m := &types.ClusterMap{
		Epoch: epoch,
		Pools: make(map[int64]types.PoolInfo),
		Nodes: map[int]types.NodeInfo{1: {Up: true}},
	}
	for _, p := range pools {
		m.Pools[p] = types.PoolInfo{}
	}
	return m
}

func TestManagerCommitLoop(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.CommitInterval = 50 * time.Millisecond
	mgr, err := NewManager(cfg, clusterstate.BasicChecker{})
	require.NoError(t, err)

	mgr.Start()
	base := mgr.State().Version()

	assert.Eventually(t, func() bool {
		return mgr.State().Version() > base
	}, 2*time.Second, 10*time.Millisecond, "periodic commit should bump the version")

	mgr.Stop()
}

func TestManagerCheckpointRestore(t *testing.T) {
	dir := t.TempDir()
	pg := types.PGID{Pool: 1, Num: 0}

	mgr, err := NewManager(testConfig(dir), clusterstate.BasicChecker{})
	require.NoError(t, err)
	mgr.Start()

	mgr.IngestMap(clusterMap(1, 1))
	mgr.IngestReport(&types.StatsReport{
		NodeID:   1,
		MapEpoch: 1,
		PGs: []types.PGStatEntry{{
			ID:    pg,
			Stats: types.PGStats{ReportedEpoch: 1, ReportedSeq: 1, State: types.PGStateActive, ActingPrimary: 1},
		}},
	})
	mgr.State().Commit()
	version := mgr.State().Version()
	mgr.Stop() // takes the final checkpoint

	restored, err := NewManager(testConfig(dir), clusterstate.BasicChecker{})
	require.NoError(t, err)
	defer func() {
		restored.Start()
		restored.Stop()
	}()

	assert.Equal(t, version, restored.State().Version())
	st, ok := restored.State().PGStats(pg)
	require.True(t, ok)
	assert.Equal(t, types.PGStateActive, st.State)
}

func TestManagerPublishesEvents(t *testing.T) {
	mgr, err := NewManager(testConfig(t.TempDir()), clusterstate.BasicChecker{})
	require.NoError(t, err)

	sub := mgr.Events().Subscribe()
	defer mgr.Events().Unsubscribe(sub)

	mgr.IngestMap(clusterMap(3, 1))

	select {
	case ev := <-sub:
		assert.Equal(t, events.EventMapApplied, ev.Type)
		assert.Equal(t, "3", ev.Metadata["epoch"])
		assert.NotEmpty(t, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("expected a map.applied event")
	}

	mgr.Start()
	mgr.Stop()
}
