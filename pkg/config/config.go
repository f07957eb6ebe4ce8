package config

import (
	"fmt"
	"os"

	"github.com/stratumhq/stratum/pkg/clusterstate"
	"gopkg.in/yaml.v3"
)

// Config is the full manager configuration, loadable from YAML. Zero
// values fall back to the defaults from Default.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Manager ManagerConfig `yaml:"manager"`
	Admin   AdminConfig   `yaml:"admin"`
	Network NetworkConfig `yaml:"network"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ManagerConfig controls the commit and checkpoint cadence.
type ManagerConfig struct {
	DataDir             string `yaml:"data_dir"`
	CommitIntervalS     int    `yaml:"commit_interval_seconds"`
	CheckpointIntervalS int    `yaml:"checkpoint_interval_seconds"`
}

// AdminConfig controls the admin HTTP surface.
type AdminConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// NetworkConfig holds the heartbeat latency warning thresholds.
type NetworkConfig struct {
	WarnSlowPingUS    int64   `yaml:"warn_slow_ping_us"`
	HeartbeatGraceS   int64   `yaml:"heartbeat_grace_seconds"`
	WarnSlowPingRatio float64 `yaml:"warn_slow_ping_ratio"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Manager: ManagerConfig{
			DataDir:             "/var/lib/stratum",
			CommitIntervalS:     5,
			CheckpointIntervalS: 30,
		},
		Admin: AdminConfig{
			ListenAddr: ":7461",
		},
		Network: NetworkConfig{
			WarnSlowPingUS:    0,
			HeartbeatGraceS:   20,
			WarnSlowPingRatio: 0.05,
		},
	}
}

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Thresholds maps the network section onto the merge engine's thresholds.
func (c *Config) Thresholds() clusterstate.Thresholds {
	return clusterstate.Thresholds{
		WarnSlowPingUS:    c.Network.WarnSlowPingUS,
		HeartbeatGraceS:   c.Network.HeartbeatGraceS,
		WarnSlowPingRatio: c.Network.WarnSlowPingRatio,
	}
}
