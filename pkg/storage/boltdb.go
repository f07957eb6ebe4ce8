package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/stratumhq/stratum/pkg/clusterstate"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketCheckpoints = []byte("checkpoints")

	keyStatsMap = []byte("statsmap")
)

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "stratum.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCheckpoints); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketCheckpoints, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// SaveCheckpoint writes the snapshot, replacing any previous checkpoint.
func (s *BoltStore) SaveCheckpoint(sm *clusterstate.StatsMap) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCheckpoints)
		data, err := json.Marshal(sm)
		if err != nil {
			return err
		}
		return b.Put(keyStatsMap, data)
	})
}

// LoadCheckpoint returns the last saved snapshot, or (nil, nil) when none
// has been written.
func (s *BoltStore) LoadCheckpoint() (*clusterstate.StatsMap, error) {
	var sm *clusterstate.StatsMap
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCheckpoints)
		data := b.Get(keyStatsMap)
		if data == nil {
			return nil
		}
		sm = &clusterstate.StatsMap{}
		if err := json.Unmarshal(data, sm); err != nil {
			return fmt.Errorf("failed to decode checkpoint: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sm, nil
}
