package manager

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/stratumhq/stratum/pkg/clusterstate"
	"github.com/stratumhq/stratum/pkg/events"
	"github.com/stratumhq/stratum/pkg/log"
	"github.com/stratumhq/stratum/pkg/metrics"
	"github.com/stratumhq/stratum/pkg/storage"
	"github.com/stratumhq/stratum/pkg/types"
)

// Manager is the long-lived owner of the cluster-state engine: it drives
// the periodic delta commits, checkpoints the aggregate, and publishes
// lifecycle events. One Manager exists per process.
type Manager struct {
	dataDir string

	state       *clusterstate.State
	store       storage.Store
	eventBroker *events.Broker
	logger      zerolog.Logger

	commitInterval     time.Duration
	checkpointInterval time.Duration
	stopCh             chan struct{}
	doneCh             chan struct{}
}

// Config holds configuration for creating a Manager
type Config struct {
	DataDir            string
	CommitInterval     time.Duration
	CheckpointInterval time.Duration
	Thresholds         clusterstate.Thresholds
}

// NewManager creates a Manager with a fresh merge engine, restoring the
// last checkpoint if one exists.
func NewManager(cfg *Config, checker clusterstate.MapChecker) (*Manager, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	state := clusterstate.NewState(checker, cfg.Thresholds)

	sm, err := store.LoadCheckpoint()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if sm != nil {
		state.Restore(sm)
	}

	eventBroker := events.NewBroker()
	eventBroker.Start()

	commitInterval := cfg.CommitInterval
	if commitInterval <= 0 {
		commitInterval = 5 * time.Second
	}
	checkpointInterval := cfg.CheckpointInterval
	if checkpointInterval <= 0 {
		checkpointInterval = 30 * time.Second
	}

	m := &Manager{
		dataDir:            cfg.DataDir,
		state:              state,
		store:              store,
		eventBroker:        eventBroker,
		logger:             log.WithComponent("manager"),
		commitInterval:     commitInterval,
		checkpointInterval: checkpointInterval,
		stopCh:             make(chan struct{}),
		doneCh:             make(chan struct{}),
	}

	return m, nil
}

// State returns the merge engine.
func (m *Manager) State() *clusterstate.State {
	return m.state
}

// Events returns the event broker.
func (m *Manager) Events() *events.Broker {
	return m.eventBroker
}

// IngestReport forwards one node's stats report to the engine and
// publishes a node.reported event.
func (m *Manager) IngestReport(r *types.StatsReport) {
	m.state.IngestReport(r)
	m.eventBroker.Publish(&events.Event{
		Type:    events.EventNodeReported,
		Message: fmt.Sprintf("stats report from node %d", r.NodeID),
		Metadata: map[string]string{
			"node_id":   strconv.Itoa(r.NodeID),
			"map_epoch": strconv.FormatUint(r.MapEpoch, 10),
		},
	})
}

// IngestMap forwards a topology snapshot to the engine and publishes a
// map.applied event.
func (m *Manager) IngestMap(cm *types.ClusterMap) {
	m.state.IngestMap(cm)
	m.eventBroker.Publish(&events.Event{
		Type:    events.EventMapApplied,
		Message: fmt.Sprintf("cluster map epoch %d applied", cm.Epoch),
		Metadata: map[string]string{
			"epoch":   strconv.FormatUint(cm.Epoch, 10),
			"version": strconv.FormatUint(m.state.Version(), 10),
		},
	})
}

// Start launches the periodic commit, checkpoint and metrics loops.
func (m *Manager) Start() {
	go m.run()
}

// Stop halts the loops, takes a final checkpoint and closes the store.
func (m *Manager) Stop() {
	close(m.stopCh)
	<-m.doneCh

	if err := m.checkpoint(); err != nil {
		m.logger.Error().Err(err).Msg("final checkpoint failed")
	}
	if err := m.store.Close(); err != nil {
		m.logger.Error().Err(err).Msg("failed to close store")
	}
	m.eventBroker.Stop()
}

func (m *Manager) run() {
	defer close(m.doneCh)

	commitTicker := time.NewTicker(m.commitInterval)
	defer commitTicker.Stop()
	checkpointTicker := time.NewTicker(m.checkpointInterval)
	defer checkpointTicker.Stop()
	collectTicker := time.NewTicker(15 * time.Second)
	defer collectTicker.Stop()

	// Publish gauges immediately so a restored checkpoint is visible
	// before the first tick.
	m.collect()

	for {
		select {
		case <-commitTicker.C:
			m.state.Commit()
			m.eventBroker.Publish(&events.Event{
				Type:    events.EventDeltaCommitted,
				Message: "periodic delta commit",
				Metadata: map[string]string{
					"version": strconv.FormatUint(m.state.Version(), 10),
				},
			})
		case <-checkpointTicker.C:
			if err := m.checkpoint(); err != nil {
				m.logger.Error().Err(err).Msg("checkpoint failed")
			}
		case <-collectTicker.C:
			m.collect()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) checkpoint() error {
	if err := m.store.SaveCheckpoint(m.state.Snapshot()); err != nil {
		return err
	}
	metrics.CheckpointsSaved.Inc()
	m.eventBroker.Publish(&events.Event{
		Type:    events.EventCheckpointSaved,
		Message: "stats map checkpoint saved",
		Metadata: map[string]string{
			"version": strconv.FormatUint(m.state.Version(), 10),
		},
	})
	return nil
}

// collect refreshes the aggregate gauges from the engine.
func (m *Manager) collect() {
	metrics.StatsMapVersion.Set(float64(m.state.Version()))
	metrics.PGsTracked.Set(float64(m.state.PGCount()))
	metrics.NodesTracked.Set(float64(m.state.NodeCount()))
}
